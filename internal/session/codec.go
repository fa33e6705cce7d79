package session

import (
	"bytes"

	"holding-admin/internal/rbac"

	"github.com/goccy/go-json"
)

func encodeActor(actor *rbac.Actor) ([]byte, error) {
	return json.Marshal(actor)
}

func decodeActor(data []byte) (*rbac.Actor, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, rbac.ErrInvalidActor
	}

	var actor rbac.Actor
	if err := json.Unmarshal(data, &actor); err != nil {
		return nil, err
	}
	return &actor, nil
}
