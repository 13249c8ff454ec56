package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

var errInvalidID = errors.New("id must be a positive integer")

// pathID parses the numeric :id path parameter.
func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

func parseDay(value string) (time.Time, error) {
	return time.Parse(time.DateOnly, value)
}
