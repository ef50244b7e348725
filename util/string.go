package util

import "strconv"

// Converts string to int, 0 if not a number
func StringToInt(str string) int {
	atoi, err := strconv.Atoi(str)
	if err != nil {
		return 0
	}
	return atoi
}
