package apiutil

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/quresis/go-quresis-server/types"
)

// CallerKey is the gin context key of the authenticated caller (types.PublicKey)
const CallerKey = "caller"

func GetIPFromContext(c *gin.Context) (*string, error) {
	ip := c.Request.Header.Get("X-Real-IP")
	if len(ip) > 0 {
		return &ip, nil
	}

	ip = c.Request.Header.Get("X-Forwarded-For")
	ipList := strings.Split(ip, ",")
	if len(ipList[0]) > 0 {
		first := strings.TrimSpace(ipList[0])
		return &first, nil
	}

	// no proxy headers, take the peer address
	ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return nil, err
	}
	return &ip, nil
}

// CallerFromContext returns the owner key the JWS middleware authenticated
func CallerFromContext(c *gin.Context) (types.PublicKey, bool) {
	v, ok := c.Get(CallerKey)
	if !ok {
		return types.PublicKey{}, false
	}
	caller, ok := v.(types.PublicKey)
	if !ok || caller.IsZero() {
		return types.PublicKey{}, false
	}
	return caller, true
}

// PathPublicKey decodes a base58 key from the named path parameter
func PathPublicKey(c *gin.Context, param string) (types.PublicKey, error) {
	return types.ParsePublicKey(c.Param(param))
}
