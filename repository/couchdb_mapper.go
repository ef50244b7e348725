package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

/**
* Object Mapper (from a stored JSON document to object)
**/

func MapToObject(data []byte, obj interface{}) error {
	// Check if obj is a pointer to a struct
	val := reflect.ValueOf(obj)
	if val.Kind() != reflect.Ptr || val.Elem().Kind() != reflect.Struct {
		return errors.New("obj is not a pointer to a struct")
	}

	err := json.Unmarshal(data, obj)
	if err != nil {
		return fmt.Errorf("%s cannot be mapped to the given object: %w", truncate(data, 128), err)
	}
	return nil
}

func truncate(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}
	return string(data[:n]) + "..."
}
