package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/quresis/go-quresis-server/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var url = "http://localhost:5689"

func InitMockDatabase(dbName string) (Repository, error) {
	httpmock.Activate()

	mr, mErr := httpmock.NewJsonResponder(201, types.OK{IsOK: true})
	if mErr != nil {
		return nil, mErr
	}
	httpmock.RegisterResponder("PUT", fmt.Sprintf("%s/%s", url, dbName), mr)
	httpmock.RegisterResponder("HEAD", fmt.Sprintf("%s/%s", url, dbName), mr)

	db, err := NewCouchDBRepository(url, dbName, "test", "test", true)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func deactivateMock() {
	httpmock.DeactivateAndReset()
}

func TestInitNewDatabase(t *testing.T) {
	db, err := InitMockDatabase("test")
	defer deactivateMock()
	require.NoError(t, err)
	require.NotNil(t, db)
	assert.Equal(t, "test", db.GetDBName())
}

func TestInitNewDatabaseFails(t *testing.T) {
	httpmock.Activate()
	defer deactivateMock()

	httpmock.RegisterResponder("HEAD", fmt.Sprintf("%s/%s", url, "broken"), httpmock.NewStringResponder(404, ""))
	httpmock.RegisterResponder("PUT", fmt.Sprintf("%s/%s", url, "broken"),
		httpmock.NewStringResponder(401, `{"error":"unauthorized","reason":"Name or password is incorrect."}`))

	_, err := NewCouchDBRepository(url, "broken", "test", "wrong", true)
	assert.Error(t, err)
}

func TestGetByID(t *testing.T) {
	db, _ := InitMockDatabase("test")
	defer deactivateMock()

	mk, _ := httpmock.NewJsonResponder(200, types.BaseDocument{ID: "doc1", Rev: "1-abc"})
	httpmock.RegisterResponder("GET", fmt.Sprintf("%s/%s/%s", url, "test", "doc1"), mk)

	res, err := db.GetByID(context.Background(), "doc1")
	require.NoError(t, err)

	var doc types.BaseDocument
	require.NoError(t, MapToObject(res, &doc))
	assert.Equal(t, "doc1", doc.ID)
	assert.Equal(t, "1-abc", doc.Rev)
}

func TestGetByIDNotFound(t *testing.T) {
	db, _ := InitMockDatabase("test")
	defer deactivateMock()

	httpmock.RegisterResponder("GET", fmt.Sprintf("%s/%s/%s", url, "test", "missing"),
		httpmock.NewStringResponder(404, `{"error":"not_found","reason":"missing"}`))

	_, err := db.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestSaveConflict(t *testing.T) {
	db, _ := InitMockDatabase("test")
	defer deactivateMock()

	httpmock.RegisterResponder("PUT", fmt.Sprintf("%s/%s/%s", url, "test", "doc1"),
		httpmock.NewStringResponder(409, `{"error":"conflict","reason":"Document update conflict."}`))

	err := db.Save(context.Background(), "doc1", &types.BaseDocument{ID: "doc1", Rev: "1-stale"})
	assert.ErrorIs(t, err, types.ErrConflict)
}

func TestSave(t *testing.T) {
	db, _ := InitMockDatabase("test")
	defer deactivateMock()

	mk, _ := httpmock.NewJsonResponder(201, types.OK{IsOK: true, ID: "doc1", Rev: "1-abc"})
	httpmock.RegisterResponder("PUT", fmt.Sprintf("%s/%s/%s", url, "test", "doc1"), mk)

	err := db.Save(context.Background(), "doc1", &types.BaseDocument{ID: "doc1"})
	assert.NoError(t, err)
}

func TestGetAllSkipsDesignDocuments(t *testing.T) {
	db, _ := InitMockDatabase("test")
	defer deactivateMock()

	httpmock.RegisterResponder("GET", fmt.Sprintf("%s/%s/_all_docs", url, "test"),
		httpmock.NewStringResponder(200, `{"total_rows":2,"offset":0,"rows":[
			{"id":"_design/event-slot-kind-desc-index","doc":{"_id":"_design/event-slot-kind-desc-index"}},
			{"id":"doc1","doc":{"_id":"doc1","_rev":"1-abc"}}
		]}`))

	docs, err := db.GetAll(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	var doc types.BaseDocument
	require.NoError(t, MapToObject(docs[0], &doc))
	assert.Equal(t, "doc1", doc.ID)
}

func TestDelete(t *testing.T) {
	db, _ := InitMockDatabase("test")
	defer deactivateMock()

	mk, _ := httpmock.NewJsonResponder(200, types.BaseDocument{ID: "doc1", Rev: "3-abc"})
	httpmock.RegisterResponder("GET", fmt.Sprintf("%s/%s/%s", url, "test", "doc1"), mk)
	ok, _ := httpmock.NewJsonResponder(200, types.OK{IsOK: true})
	httpmock.RegisterResponderWithQuery("DELETE", fmt.Sprintf("%s/%s/%s", url, "test", "doc1"), "rev=3-abc", ok)

	require.NoError(t, db.Delete(context.Background(), "doc1"))
}

func TestCreateEventSlotIndex(t *testing.T) {
	db, _ := InitMockDatabase(Event)
	defer deactivateMock()

	mk, _ := httpmock.NewJsonResponder(200, map[string]string{"result": "created"})
	httpmock.RegisterResponder("POST", fmt.Sprintf("%s/%s/_index", url, Event), mk)

	require.NoError(t, CreateEventSlotIndex(db))
	assert.NoError(t, CreateEventSlotIndex(NewMemoryRepository(Event)))
}

func TestSelector(t *testing.T) {
	selector := NewCouchDBSelector()
	_, err := selector.ChooseDB(Identity)
	assert.ErrorIs(t, err, types.ErrNotFound)

	selector.AddDB(NewMemoryRepository(Identity))
	selector.AddDB(NewMemoryRepository(Hook))
	repo, err := selector.ChooseDB(Hook)
	require.NoError(t, err)
	assert.Equal(t, Hook, repo.GetDBName())
}
