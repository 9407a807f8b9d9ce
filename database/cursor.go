package database

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// cursorToken encodes a position inside a deterministic query view. It is
// opaque to clients.
type cursorToken struct {
	Version int    `json:"v"`
	Table   string `json:"t"`
	Offset  int    `json:"o"`
}

const cursorVersion = 1

func encodeCursor(tableName string, offset int) string {
	data, _ := json.Marshal(cursorToken{
		Version: cursorVersion,
		Table:   tableName,
		Offset:  offset,
	})
	return base64.RawURLEncoding.EncodeToString(data)
}

func decodeCursor(src, tableName string) (*cursorToken, error) {

	data, err := base64.RawURLEncoding.DecodeString(src)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor")
	}

	token := &cursorToken{}
	err = json.Unmarshal(data, token)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor")
	}
	if token.Version != cursorVersion {
		return nil, fmt.Errorf("invalid cursor version")
	}
	if token.Table != tableName {
		return nil, fmt.Errorf("cursor does not belong to table '%s'", tableName)
	}
	if token.Offset < 0 {
		return nil, fmt.Errorf("invalid cursor")
	}

	return token, nil
}
