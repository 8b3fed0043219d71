package rpc

import (
	"context"
	"encoding/json"

	"github.com/logrelay/logrelay/internal/model"
)

type resourceDescriptor struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MimeType    string `json:"mimeType"`
}

var resourceDescriptors = []resourceDescriptor{
	{URI: "logs://recent", Name: "Recent logs", Description: "The most recent records across all sources in the current session.", MimeType: "application/json"},
	{URI: "logs://stats", Name: "Statistics", Description: "Aggregate counts across all sources.", MimeType: "application/json"},
	{URI: "logs://errors", Name: "Recent errors", Description: "The most recent records at error severity or worse.", MimeType: "application/json"},
	{URI: "logs://current-session", Name: "Current session", Description: "The session_id currently treated as the default session.", MimeType: "application/json"},
}

func (d *Dispatcher) registerResources() {
	d.methods["resources/list"] = d.handleResourcesList
	d.methods["resources/read"] = d.handleResourcesRead
}

func (d *Dispatcher) handleResourcesList(ctx context.Context, params json.RawMessage) (any, *Error) {
	return map[string]any{"resources": resourceDescriptors}, nil
}

type resourceReadParams struct {
	URI string `json:"uri"`
}

func (d *Dispatcher) handleResourcesRead(ctx context.Context, params json.RawMessage) (any, *Error) {
	var p resourceReadParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, invalidParams(err)
	}

	var payload any
	var err error

	switch p.URI {
	case "logs://recent":
		var records []model.Record
		records, err = d.store.Query(ctx, model.Filter{Limit: 100}.Normalize())
		payload = model.ToJSONValues(records)
	case "logs://stats":
		payload, err = d.store.Stats(ctx, model.StatsFilter{})
	case "logs://errors":
		f := model.Filter{MinSeverity: model.Error, HasSeverity: true, Limit: 100}.Normalize()
		var records []model.Record
		records, err = d.store.Query(ctx, f)
		payload = model.ToJSONValues(records)
	case "logs://current-session":
		var sessionID string
		sessionID, err = d.store.LatestSession(ctx, "")
		if err == nil {
			var records []model.Record
			records, err = d.store.Query(ctx, model.Filter{SessionID: sessionID, HasSession: true, Limit: 100}.Normalize())
			if err == nil {
				payload = map[string]any{
					"session_id": sessionID,
					"count":      len(records),
					"logs":       model.ToJSONValues(records),
				}
			}
		}
	default:
		return nil, &Error{Code: CodeInvalidParams, Message: "unknown resource: " + p.URI}
	}

	if err != nil {
		return nil, internalError(err)
	}

	text, merr := json.Marshal(payload)
	if merr != nil {
		return nil, internalError(merr)
	}

	return map[string]any{
		"contents": []map[string]any{
			{"uri": p.URI, "mimeType": "application/json", "text": string(text)},
		},
	}, nil
}
