package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/weave-dev/weave/internal/graph"
	"github.com/weave-dev/weave/internal/health"
	"github.com/weave-dev/weave/internal/persistence"
	"github.com/weave-dev/weave/internal/storage"
	"github.com/weave-dev/weave/internal/types"
	"github.com/weave-dev/weave/internal/workflow"
)

// Server dispatches the fixed tool set onto the core engines. It adds
// no semantics of its own: every handler is a direct translation of a
// Request's Args into the same engine call the CLI's --json path makes.
type Server struct {
	Store   storage.Store
	Graph   *graph.Engine
	Workflow *workflow.Engine
	Persist *persistence.Manager
}

// New wires a Server against the already-constructed core engines.
func New(store storage.Store, g *graph.Engine, wf *workflow.Engine, pm *persistence.Manager) *Server {
	return &Server{Store: store, Graph: g, Workflow: wf, Persist: pm}
}

// Serve reads newline-delimited JSON Requests from r and writes
// newline-delimited JSON Responses to w until r is exhausted or ctx is
// canceled. One malformed line produces one error Response; it never
// aborts the loop.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			_ = enc.Encode(Response{Success: false, Error: fmt.Sprintf("invalid request: %v", err)})
			continue
		}
		resp := s.dispatch(ctx, &req)
		resp.RequestID = req.RequestID
		_ = enc.Encode(resp)
	}
	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, req *Request) Response {
	switch req.Operation {
	case OpWork:
		return s.handleWork(ctx, req)
	case OpShip:
		return s.handleShip(ctx, req)
	case OpQuick:
		return s.handleQuick(ctx, req)
	case OpOverview:
		return s.handleOverview(ctx, req)
	case OpAdd:
		return s.handleAdd(ctx, req)
	case OpLink:
		return s.handleLink(ctx, req)
	case OpDone:
		return s.handleDone(ctx, req)
	case OpBatchDone:
		return s.handleBatchDone(ctx, req)
	case OpUpdate:
		return s.handleUpdate(ctx, req)
	case OpList:
		return s.handleList(ctx, req)
	case OpResolve:
		return s.handleResolve(ctx, req)
	case OpDelete:
		return s.handleDelete(ctx, req)
	default:
		return errResponse(fmt.Errorf("unknown operation %q", req.Operation))
	}
}

func errResponse(err error) Response {
	return Response{Success: false, Error: err.Error()}
}

func dataResponse(v interface{}) Response {
	data, err := json.Marshal(v)
	if err != nil {
		return errResponse(err)
	}
	return Response{Success: true, Data: data}
}

func unmarshalArgs(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func (s *Server) handleWork(ctx context.Context, req *Request) Response {
	var args WorkArgs
	if err := unmarshalArgs(req.Args, &args); err != nil {
		return errResponse(err)
	}
	n, err := s.Workflow.Work(ctx, args.ID)
	if err != nil {
		return errResponse(err)
	}
	return dataResponse(n)
}

func (s *Server) handleShip(ctx context.Context, req *Request) Response {
	var args ShipArgs
	if err := unmarshalArgs(req.Args, &args); err != nil {
		return errResponse(err)
	}
	gh := ""
	if args.GH {
		gh = "forced"
	}
	result, err := s.Workflow.Ship(ctx, args.ID, workflow.ShipOptions{Learning: args.Learning, GH: gh})
	if err != nil {
		return errResponse(err)
	}
	return dataResponse(result)
}

func (s *Server) handleQuick(ctx context.Context, req *Request) Response {
	var args QuickArgs
	if err := unmarshalArgs(req.Args, &args); err != nil {
		return errResponse(err)
	}
	result, err := s.Workflow.Quick(ctx, args.Text, args.Learning)
	if err != nil {
		return errResponse(err)
	}
	return dataResponse(result)
}

func (s *Server) handleOverview(ctx context.Context, req *Request) Response {
	report, err := health.Compute(ctx, s.Store)
	if err != nil {
		return errResponse(err)
	}
	ready, err := s.Graph.Ready(ctx)
	if err != nil {
		return errResponse(err)
	}
	if len(ready) > 5 {
		ready = ready[:5]
	}
	counts := map[types.Status]int{}
	for _, st := range []types.Status{types.StatusBlocked, types.StatusActive} {
		nodes, err := s.Store.ListNodes(ctx, storage.NodeFilter{Status: st})
		if err != nil {
			return errResponse(err)
		}
		counts[st] = len(nodes)
	}
	return dataResponse(map[string]interface{}{
		"health": report, "ready": ready, "blocked": counts[types.StatusBlocked], "active": counts[types.StatusActive],
	})
}

func (s *Server) handleAdd(ctx context.Context, req *Request) Response {
	var args AddArgs
	if err := unmarshalArgs(req.Args, &args); err != nil {
		return errResponse(err)
	}
	var meta types.Metadata
	if len(args.Metadata) > 0 {
		if err := meta.UnmarshalJSON(args.Metadata); err != nil {
			return errResponse(err)
		}
	}
	n, err := s.Graph.Add(ctx, args.Text, graph.AddOptions{
		Status:   types.Status(args.Status),
		Metadata: meta,
		Alias:    args.Alias,
		Parent:   args.Parent,
		Force:    args.Force,
	})
	if err != nil {
		return errResponse(err)
	}
	return dataResponse(n)
}

func (s *Server) handleLink(ctx context.Context, req *Request) Response {
	var args LinkArgs
	if err := unmarshalArgs(req.Args, &args); err != nil {
		return errResponse(err)
	}
	weight := args.Weight
	if weight == 0 {
		weight = 1.0
	}
	if err := s.Graph.Link(ctx, args.From, args.To, types.EdgeType(args.Type), weight, args.Context); err != nil {
		return errResponse(err)
	}
	return dataResponse(map[string]string{"from": args.From, "to": args.To, "type": args.Type})
}

func (s *Server) handleDone(ctx context.Context, req *Request) Response {
	var args DoneArgs
	if err := unmarshalArgs(req.Args, &args); err != nil {
		return errResponse(err)
	}
	result, err := s.Workflow.Done(ctx, args.ID, workflow.DoneOptions{
		Learning:         args.Learning,
		SkipVerification: args.SkipVerification,
		NoWarn:           args.NoWarn,
	})
	if err != nil {
		return errResponse(err)
	}
	return dataResponse(result)
}

func (s *Server) handleBatchDone(ctx context.Context, req *Request) Response {
	var args BatchDoneArgs
	if err := unmarshalArgs(req.Args, &args); err != nil {
		return errResponse(err)
	}
	results, err := s.Workflow.BatchDone(ctx, args.IDs, args.Learning)
	if err != nil {
		return errResponse(err)
	}
	return dataResponse(results)
}

func (s *Server) handleUpdate(ctx context.Context, req *Request) Response {
	var args UpdateArgs
	if err := unmarshalArgs(req.Args, &args); err != nil {
		return errResponse(err)
	}
	opts := graph.UpdateOptions{RemoveKey: args.RemoveKey}
	if args.Status != "" {
		status := types.Status(args.Status)
		opts.Status = &status
	}
	if args.Text != "" {
		opts.Text = &args.Text
	}
	if args.Alias != "" {
		opts.Alias = &args.Alias
	}
	if len(args.Metadata) > 0 {
		var meta types.Metadata
		if err := meta.UnmarshalJSON(args.Metadata); err != nil {
			return errResponse(err)
		}
		opts.Metadata = meta
		opts.HasMeta = true
	}
	n, err := s.Graph.Update(ctx, args.ID, opts)
	if err != nil {
		return errResponse(err)
	}
	return dataResponse(n)
}

func (s *Server) handleList(ctx context.Context, req *Request) Response {
	var args ListArgs
	if err := unmarshalArgs(req.Args, &args); err != nil {
		return errResponse(err)
	}
	nodes, err := s.Store.ListNodes(ctx, storage.NodeFilter{
		Status:   types.Status(args.Status),
		Type:     args.Type,
		Priority: args.Priority,
		All:      args.All,
	})
	if err != nil {
		return errResponse(err)
	}
	if nodes == nil {
		nodes = []*types.Node{}
	}
	return dataResponse(nodes)
}

func (s *Server) handleResolve(ctx context.Context, req *Request) Response {
	var args ResolveArgs
	if err := unmarshalArgs(req.Args, &args); err != nil {
		return errResponse(err)
	}
	mode := types.ResolveMode(args.Mode)
	if mode == "" {
		mode = types.ResolveWinner
	}
	result, err := s.Graph.Resolve(ctx, args.N1, args.N2, mode, args.Winner, args.Rationale)
	if err != nil {
		return errResponse(err)
	}
	return dataResponse(result)
}

func (s *Server) handleDelete(ctx context.Context, req *Request) Response {
	var args DeleteArgs
	if err := unmarshalArgs(req.Args, &args); err != nil {
		return errResponse(err)
	}
	result, err := s.Graph.Delete(ctx, args.ID, args.Force, args.DryRun)
	if err != nil {
		return errResponse(err)
	}
	return dataResponse(result)
}
