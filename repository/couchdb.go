package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jarcoal/httpmock"
	"github.com/quresis/go-quresis-server/types"
)

// implements Repository interface using CouchDB
type CouchDBRepository struct {
	client *resty.Client
	dbName string
}

func NewCouchDBRepository(url, DBName string, username string, password string, mock bool) (Repository, error) {
	cl := resty.New().SetBaseURL(url).SetTimeout(time.Second * 10)
	cl.SetHeader("Content-Type", "application/json")
	cl.SetHeader("Accept", "application/json")
	cl.SetHeader("User-Agent", "go-quresis-server/1.0.0")
	if username != "" {
		cl.SetBasicAuth(username, password)
	}

	if mock {
		httpmock.ActivateNonDefault(cl.GetClient())
	}

	existstRes, exsistsErr := cl.R().Head(DBName)
	if exsistsErr != nil {
		return nil, fmt.Errorf("failed to check if database exists: %w", exsistsErr)
	}
	if existstRes.StatusCode() == 200 {
		return &CouchDBRepository{cl, DBName}, nil
	}

	var ok types.OK
	var dbErr types.CouchDBError
	// create DB since it doesn't exist
	_, err := cl.R().SetResult(&ok).SetError(&dbErr).Put(DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to create database %s: %w", DBName, err)
	}
	if dbErr.Error != "" {
		return nil, fmt.Errorf("failed to create database %s: %s", DBName, dbErr.Error)
	}
	if !ok.IsOK {
		return nil, fmt.Errorf("failed to create database %s", DBName)
	}
	return &CouchDBRepository{cl, DBName}, nil
}

// GetByID returns the raw JSON document by its ID
func (c *CouchDBRepository) GetByID(ctx context.Context, id string) ([]byte, error) {
	response, err := c.client.R().SetContext(ctx).Get(c.docPath(id))
	if err != nil {
		return nil, err
	}
	if response.IsError() {
		return nil, handleError(response)
	}
	return response.Body(), nil
}

// GetAll returns a page of documents, design documents excluded
func (c *CouchDBRepository) GetAll(ctx context.Context, limit int, skip int) ([][]byte, error) {
	var data types.AllDocsResponse
	response, err := c.client.R().SetContext(ctx).
		SetQueryParam("include_docs", "true").
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetQueryParam("skip", strconv.Itoa(skip)).
		Get(fmt.Sprintf("%s/_all_docs", c.dbName))
	if err != nil {
		return nil, err
	}
	if response.IsError() {
		return nil, handleError(response)
	}
	if err := json.Unmarshal(response.Body(), &data); err != nil {
		return nil, fmt.Errorf("failed to parse _all_docs response: %w", err)
	}

	documents := make([][]byte, 0, len(data.Rows))
	for _, row := range data.Rows {
		if strings.HasPrefix(row.ID, "_design/") || len(row.Doc) == 0 {
			continue
		}
		documents = append(documents, row.Doc)
	}
	return documents, nil
}

// Save creates a new doc or updates an existing one. The _rev carried by data decides which.
func (c *CouchDBRepository) Save(ctx context.Context, docID string, data interface{}) error {
	var ok types.OK
	response, err := c.client.R().SetContext(ctx).SetBody(data).Put(c.docPath(docID))
	if err != nil {
		return err
	}
	if response.IsError() {
		return handleError(response)
	}
	if err := json.Unmarshal(response.Body(), &ok); err != nil || !ok.IsOK {
		return fmt.Errorf("failed to save document %s", docID)
	}
	return nil
}

// Delete deletes a document by its ID
func (c *CouchDBRepository) Delete(ctx context.Context, id string) error {
	raw, err := c.GetByID(ctx, id)
	if err != nil {
		return err
	}
	var doc types.BaseDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}

	response, err := c.client.R().SetContext(ctx).SetQueryParam("rev", doc.Rev).Delete(c.docPath(id))
	if err != nil {
		return err
	}
	if response.IsError() {
		return handleError(response)
	}
	return nil
}

// return name of the database
func (c *CouchDBRepository) GetDBName() string {
	return c.dbName
}

// returns a resty client
func (c *CouchDBRepository) GetClient() *resty.Client {
	return c.client
}

func (c *CouchDBRepository) docPath(id string) string {
	return fmt.Sprintf("%s/%s", c.dbName, id)
}
