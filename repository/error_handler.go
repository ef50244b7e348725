package repository

import (
	"encoding/json"
	"fmt"

	"github.com/go-kit/log/level"
	"github.com/go-resty/resty/v2"
	"github.com/quresis/go-quresis-server/global"
	"github.com/quresis/go-quresis-server/types"
)

func handleError(reqErr *resty.Response) error {
	if reqErr.StatusCode() == 404 {
		return types.ErrNotFound
	}
	if reqErr.StatusCode() == 409 {
		return types.ErrConflict
	}
	if reqErr.IsError() {
		var dbErr types.CouchDBError
		uErr := json.Unmarshal(reqErr.Body(), &dbErr)
		if uErr != nil {
			level.Error(global.Logger).Log("msg", "failed to unmarshal couchdb response", "err", uErr)
			return uErr
		}
		if dbErr.Error != "" {
			return fmt.Errorf("%w: %s %s", types.ErrBadRequest, dbErr.Error, dbErr.Reason)
		}
		return types.ErrBadRequest
	}
	return nil
}
