package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dune/dune-analytics-mcp-server/internal/protocol"
)

// maxLineSize is the largest single JSON-RPC line accepted on stdin (1MB);
// CSV uploads are the reason this is well beyond the scanner default.
const maxLineSize = 1024 * 1024

// RunStdio serves newline-delimited JSON-RPC until EOF: one request per
// line in, one response per line out. Invocations are handled strictly one
// at a time; a clean EOF returns nil.
func RunStdio(ctx context.Context, server *Server, in io.Reader, out io.Writer, logger *logrus.Entry) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, maxLineSize), maxLineSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		reqID := uuid.NewString()
		var req protocol.Request
		if err := json.Unmarshal(line, &req); err != nil {
			logger.WithField("request_id", reqID).Warnf("unparseable request: %v", err)
			if werr := writeLine(out, WriteError(nil, protocol.CodeParseError, "invalid JSON", nil)); werr != nil {
				return werr
			}
			continue
		}

		// Notifications carry no id and expect no reply.
		if req.ID == nil && strings.HasPrefix(req.Method, "notifications/") {
			continue
		}

		resp, err := server.Handle(ctx, req)
		if err != nil {
			resp = WriteError(req.ID, protocol.CodeInternalError, "internal error", err)
		}
		logger.WithFields(logrus.Fields{
			"request_id": reqID,
			"method":     req.Method,
			"failed":     resp.Error != nil,
		}).Debug("handled request")

		if err := writeLine(out, resp); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	return nil
}

func writeLine(out io.Writer, resp protocol.Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	if _, err := fmt.Fprintf(out, "%s\n", data); err != nil {
		return fmt.Errorf("write stdout: %w", err)
	}
	return nil
}
