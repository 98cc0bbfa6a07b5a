package zk

import (
	"crypto/rand"
	"encoding/json"
	"io"
)

func marshalPayload(p Payload) ([]byte, error) {
	return json.Marshal(p)
}

func randReader() io.Reader {
	return rand.Reader
}
