package types

import "encoding/json"

type OK struct {
	IsOK bool   `json:"ok"`
	ID   string `json:"id,omitempty"`
	Rev  string `json:"rev,omitempty"`
}

type CouchDBError struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

// BaseDocument carries the CouchDB identity and revision of a stored document
type BaseDocument struct {
	ID      string `json:"_id,omitempty"`
	Rev     string `json:"_rev,omitempty"`
	Deleted bool   `json:"_deleted,omitempty"`
}

// IdentityDocument stores the byte exact identity record (base64 in JSON)
type IdentityDocument struct {
	BaseDocument `json:",inline"`
	Owner        string `json:"owner"`
	Record       []byte `json:"record"`
}

// EventDocument is an archived event in the events database
type EventDocument struct {
	BaseDocument `json:",inline"`
	Event        `json:",inline"`
}

// AllDocsResponse is the _all_docs view with include_docs=true
type AllDocsResponse struct {
	TotalRows int64        `json:"total_rows"`
	Offset    int64        `json:"offset"`
	Rows      []AllDocsRow `json:"rows"`
}

type AllDocsRow struct {
	ID  string          `json:"id"`
	Doc json.RawMessage `json:"doc"`
}
