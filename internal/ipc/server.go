package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"strings"
	"sync"

	"log/slog"

	"librarian/internal/catalog"
	"librarian/internal/daemon"
	"librarian/internal/ingest"
	"librarian/internal/logging"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path. The shutdown
// callback is invoked when a client requests daemon termination.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger, shutdown func()) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx, shutdown: shutdown}
	if err := rpcServer.RegisterName("Librarian", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("control socket listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed", logging.Error(err))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path), logging.Error(err))
	}
}

type service struct {
	daemon   *daemon.Daemon
	logger   *slog.Logger
	ctx      context.Context
	shutdown func()
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.Since = status.Since
	resp.CatalogDBPath = status.CatalogDBPath
	resp.FacetsDBPath = status.FacetsDBPath
	resp.LockPath = status.LockFilePath
	resp.ContentCount = status.ContentCount
	resp.PID = os.Getpid()
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	resp.Stopping = true
	if s.shutdown != nil {
		// Asynchronous so the response reaches the client before teardown.
		go s.shutdown()
	}
	return nil
}

func (s *service) Sweep(_ SweepRequest, resp *SweepResponse) error {
	if err := s.daemon.Service().Sweep(s.ctx); err != nil {
		return err
	}
	resp.Message = "spool sweep completed"
	return nil
}

func (s *service) List(req ListRequest, resp *ListResponse) error {
	filter := catalog.Filter{Tag: req.Tag, Lang: req.Lang, Multipage: req.Multipage}
	var (
		page ingest.ContentPage
		err  error
	)
	if strings.TrimSpace(req.Terms) != "" {
		page, err = s.daemon.Service().SearchContent(s.ctx, req.Terms, req.Offset, req.Limit, filter)
	} else {
		page, err = s.daemon.Service().GetContent(s.ctx, req.Offset, req.Limit, filter)
	}
	if err != nil {
		return err
	}
	resp.Items = page.Items
	resp.Total = page.Total
	return nil
}

func (s *service) Show(req ShowRequest, resp *ShowResponse) error {
	item, err := s.daemon.Service().GetSingle(s.ctx, req.MD5)
	if err != nil {
		return err
	}
	resp.Item = item
	return nil
}

func (s *service) Add(req AddRequest, resp *AddResponse) error {
	affected, err := s.daemon.Service().AddToArchive(s.ctx, req.IDs)
	if err != nil {
		return err
	}
	resp.Affected = affected
	return nil
}

func (s *service) Remove(req RemoveRequest, resp *RemoveResponse) error {
	failed, err := s.daemon.Service().RemoveFromArchive(s.ctx, req.IDs)
	if err != nil {
		return err
	}
	resp.Failed = failed
	return nil
}

func (s *service) Reload(req ReloadRequest, resp *ReloadResponse) error {
	affected, err := s.daemon.Service().Reload(s.ctx, req.Clear)
	if err != nil {
		return err
	}
	resp.Affected = affected
	return nil
}

func (s *service) TagsAdd(req TagsEditRequest, resp *TagsEditResponse) error {
	return s.daemon.Service().AddTags(s.ctx, req.MD5, req.Tags)
}

func (s *service) TagsRemove(req TagsEditRequest, resp *TagsEditResponse) error {
	return s.daemon.Service().RemoveTags(s.ctx, req.MD5, req.Tags)
}

func (s *service) TagCloud(_ TagCloudRequest, resp *TagCloudResponse) error {
	cloud, err := s.daemon.Service().TagCloud(s.ctx)
	if err != nil {
		return err
	}
	resp.Tags = cloud
	return nil
}

func (s *service) FacetSearch(req FacetSearchRequest, resp *FacetSearchResponse) error {
	records, err := s.daemon.Service().FacetSearch(s.ctx, req.Terms, req.FacetType)
	if err != nil {
		return err
	}
	resp.Records = records
	return nil
}

func (s *service) FacetScan(req FacetScanRequest, resp *FacetScanResponse) error {
	return s.daemon.Service().FacetScan(s.ctx, req.Path)
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	if err := s.daemon.Service().TestNotification(s.ctx); err != nil {
		resp.Sent = false
		resp.Message = err.Error()
		return nil
	}
	resp.Sent = true
	resp.Message = "test notification sent"
	return nil
}
