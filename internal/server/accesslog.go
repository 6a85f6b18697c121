package server

import (
	json "github.com/json-iterator/go"
)

type Logger interface {
	Printf(format string, v ...any)
}

// accessRecord is emitted once per completed message.
type accessRecord struct {
	Conn      string   `json:"conn"`
	Remote    string   `json:"remote"`
	Method    string   `json:"method"`
	URL       string   `json:"url"`
	Headers   []string `json:"headers"`
	BodyBytes int      `json:"body_bytes"`
	Chunks    int      `json:"chunks"`
}

// sessionRecord summarizes the whole connection on close.
type sessionRecord struct {
	Conn     string `json:"conn"`
	Remote   string `json:"remote"`
	Messages int    `json:"messages"`
	Written  int64  `json:"written"`
	Error    string `json:"error,omitempty"`
}

func logJSON(logger Logger, record any) {
	stream := json.ConfigDefault.BorrowStream(nil)
	defer json.ConfigDefault.ReturnStream(stream)

	stream.WriteVal(record)
	if stream.Error != nil {
		logger.Printf("WARNING: access log: %s", stream.Error)
		return
	}

	logger.Printf("%s", stream.Buffer())
}
