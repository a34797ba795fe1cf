// Package server exposes the analysis engine as a JSON-RPC 2.0 service over
// a byte stream, normally stdio. One request type maps to each engine
// operation; cancelled requests are reported as server-to-client
// notifications rather than responses.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/Zouzou-2006/algovision"
)

// Server dispatches protocol requests to an Engine it owns.
type Server struct {
	engine *algovision.Engine
	log    *slog.Logger

	mu   sync.Mutex
	conn *jsonrpc2.Conn
}

// New builds a Server and its Engine. The engine is wired to report
// cancellations through the server's connection.
func New(log *slog.Logger, opts ...algovision.Option) (*Server, error) {
	s := &Server{log: log}
	opts = append(opts,
		algovision.WithLogger(log),
		algovision.WithCancelNotifier(s.notifyCancelled),
	)
	eng, err := algovision.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("server: create engine: %w", err)
	}
	s.engine = eng
	return s, nil
}

// Engine returns the underlying engine, mainly for tests.
func (s *Server) Engine() *algovision.Engine {
	return s.engine
}

// Close shuts down the engine.
func (s *Server) Close() error {
	return s.engine.Close()
}

// Serve runs the protocol loop on rwc until the peer disconnects or ctx is
// cancelled. Requests are handled asynchronously so a long Analyze cannot
// block the cancel that is meant to interrupt it.
func (s *Server) Serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	handler := jsonrpc2.AsyncHandler(jsonrpc2.HandlerWithError(s.handle))
	conn := jsonrpc2.NewConn(ctx, stream, handler)

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		conn.Close()
		return ctx.Err()
	case <-conn.DisconnectNotify():
		return nil
	}
}

// notifyCancelled emits the cancelled{requestId} notification. Called by the
// engine for every cancelled or superseded request.
func (s *Server) notifyCancelled(requestID string) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}
	if err := conn.Notify(context.Background(), "cancelled", cancelledParams{RequestID: requestID}); err != nil {
		s.log.Warn("cancelled notice failed", "requestID", requestID, "error", err)
	}
}

func (s *Server) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	switch req.Method {
	case "init":
		coldStartMs, err := s.engine.Init(ctx)
		if err != nil {
			return nil, err
		}
		return initResult{ColdStartMs: coldStartMs, Languages: s.engine.Languages()}, nil

	case "openDoc":
		var p openDocParams
		if err := unmarshalParams(req, &p); err != nil {
			return nil, err
		}
		s.engine.OpenDoc(p.DocID, p.Language, p.Text, p.Version)
		return nil, nil

	case "applyEdits":
		var p applyEditsParams
		if err := unmarshalParams(req, &p); err != nil {
			return nil, err
		}
		if err := s.engine.ApplyEdits(p.DocID, p.Version, p.Edits); err != nil {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
		}
		if !p.Analyze {
			return nil, nil
		}
		return s.analyze(ctx, p.DocID, p.RequestID, p.Options)

	case "analyze":
		var p analyzeParams
		if err := unmarshalParams(req, &p); err != nil {
			return nil, err
		}
		return s.analyze(ctx, p.DocID, p.RequestID, p.Options)

	case "cancel":
		var p cancelParams
		if err := unmarshalParams(req, &p); err != nil {
			return nil, err
		}
		// The engine fires the notifier, which emits the notice.
		s.engine.Cancel(p.RequestID)
		return nil, nil

	case "closeDoc":
		var p closeDocParams
		if err := unmarshalParams(req, &p); err != nil {
			return nil, err
		}
		s.engine.CloseDoc(p.DocID)
		return nil, nil

	default:
		return nil, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeMethodNotFound,
			Message: fmt.Sprintf("method not supported: %s", req.Method),
		}
	}
}

// analyze runs the engine and shapes the response. A cancelled request gets
// a null result; the cancelled notice has already been sent by the
// notifier.
func (s *Server) analyze(ctx context.Context, docID, requestID string, opts *analyzeOptions) (interface{}, error) {
	res, err := s.engine.Analyze(ctx, docID, requestID, opts.toEngine())
	if err == algovision.ErrCancelled {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func unmarshalParams(req *jsonrpc2.Request, dst interface{}) error {
	if req.Params == nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "missing params"}
	}
	if err := json.Unmarshal(*req.Params, dst); err != nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
	}
	return nil
}
