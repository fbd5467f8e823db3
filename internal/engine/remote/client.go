package remote

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/estelamoura/unimrcp/internal/assets"
	"github.com/estelamoura/unimrcp/internal/engine"
	"github.com/estelamoura/unimrcp/internal/transcript"
	"github.com/estelamoura/unimrcp/internal/version"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ClientConfig controls dialing and request behavior.
type ClientConfig struct {
	Endpoint    string
	Token       string
	DialTimeout time.Duration
	// Resolver loads audio and file grammars locally so the server never
	// needs access to the client's data directory.
	Resolver *assets.Resolver
	// DebugResponseSinkJSON receives one JSON line per response when set.
	DebugResponseSinkJSON io.Writer
	Logger                *slog.Logger
	OnPriority            engine.PriorityFunc
}

// Client is an engine.Engine backed by a remote Recognizer service.
type Client struct {
	conn *grpc.ClientConn
	cfg  ClientConfig
	dump *dumpSink
}

var _ engine.Engine = (*Client)(nil)

// Dial connects to endpoint and waits until the channel is ready.
func Dial(ctx context.Context, cfg ClientConfig) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("engine endpoint is empty")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 3 * time.Second
	}
	if cfg.Resolver == nil {
		cfg.Resolver = assets.NewResolver("")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	conn, err := grpc.NewClient(
		endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUserAgent(version.UserAgent()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial engine grpc %q: %w", endpoint, err)
	}

	readyCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	conn.Connect()
	if err := waitForReady(readyCtx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("wait for engine grpc readiness: %w", err)
	}

	c := &Client{conn: conn, cfg: cfg}
	if cfg.DebugResponseSinkJSON != nil {
		c.dump = &dumpSink{w: cfg.DebugResponseSinkJSON}
	}
	return c, nil
}

// outgoing attaches authorization and a fresh request id.
func (c *Client) outgoing(ctx context.Context) (context.Context, string) {
	requestID := uuid.NewString()
	md := metadata.Pairs(headerRequestID, requestID)
	if c.cfg.Token != "" {
		md.Set(headerAuthorization, "Bearer "+c.cfg.Token)
	}
	return metadata.NewOutgoingContext(ctx, md), requestID
}

func (c *Client) invoke(ctx context.Context, method string, req map[string]any) (*structpb.Struct, string, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, "", fmt.Errorf("encode %s request: %w", method, err)
	}

	ctx, requestID := c.outgoing(ctx)
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, method, in, out); err != nil {
		return nil, requestID, err
	}
	c.dump.write(method, out)
	return out, requestID, nil
}

// CreateSession opens a remote session for profile.
func (c *Client) CreateSession(ctx context.Context, profile string) (engine.Session, error) {
	out, requestID, err := c.invoke(ctx, methodCreateSession, map[string]any{fieldProfile: profile})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %s", engine.ErrUnknownProfile, status.Convert(err).Message())
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	id := stringField(out, fieldSessionID)
	if id == "" {
		return nil, errors.New("create session: server returned no session id")
	}
	c.cfg.Logger.Debug("remote session created", "engine_session", id, "profile", profile, "request_id", requestID)
	return &remoteSession{client: c, id: id, profile: profile}, nil
}

// SetLogPriority forwards the clamped priority to the server and OnPriority.
// Server failures are logged only.
func (c *Client) SetLogPriority(priority int) {
	priority = engine.ClampPriority(priority)
	if c.cfg.OnPriority != nil {
		c.cfg.OnPriority(priority)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.DialTimeout)
	defer cancel()
	if _, _, err := c.invoke(ctx, methodSetLogPriority, map[string]any{fieldPriority: priority}); err != nil {
		c.cfg.Logger.Warn("remote set log priority failed", "priority", priority, "error", err.Error())
	}
}

// Health queries the standard gRPC health service for the Recognizer.
func (c *Client) Health(ctx context.Context) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := healthpb.NewHealthClient(c.conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

type remoteSession struct {
	client  *Client
	id      string
	profile string

	mu        sync.Mutex
	destroyed bool
}

func (s *remoteSession) Profile() string { return s.profile }

func (s *remoteSession) RecognizeFile(ctx context.Context, req engine.FileRequest) (engine.Result, error) {
	s.mu.Lock()
	destroyed := s.destroyed
	s.mu.Unlock()
	if destroyed {
		return engine.Result{}, engine.ErrSessionClosed
	}

	payload := map[string]any{
		fieldSessionID:         s.id,
		fieldGrammarURI:        req.GrammarURI,
		fieldInputFile:         req.InputFile,
		fieldSendDefineGrammar: req.Directives.SendDefineGrammar,
		fieldSendSetParams:     req.Directives.SendSetParams,
	}

	grammarContent := req.GrammarContent
	if grammarContent == "" && req.Directives.SendDefineGrammar {
		grammar, err := s.client.cfg.Resolver.ResolveGrammar(req.GrammarURI)
		if err != nil {
			return engine.Result{}, err
		}
		grammarContent = grammar.Content
	}
	if grammarContent != "" {
		payload[fieldGrammarContent] = grammarContent
	}

	pcm := req.Audio
	if pcm == nil {
		audio, err := s.client.cfg.Resolver.LoadAudio(ctx, req.InputFile)
		if err != nil {
			return engine.Result{}, err
		}
		pcm = audio.PCM
	}
	payload[fieldAudio] = base64.StdEncoding.EncodeToString(pcm)

	out, requestID, err := s.client.invoke(ctx, methodRecognizeFile, payload)
	if err != nil {
		if status.Code(err) == codes.FailedPrecondition {
			return engine.Result{RequestID: requestID}, fmt.Errorf("%w: %s", engine.ErrSessionClosed, status.Convert(err).Message())
		}
		return engine.Result{RequestID: requestID}, fmt.Errorf("recognize file: %w", err)
	}

	result := engine.Result{
		Text:            transcript.Assemble(segmentsField(out)),
		CompletionCause: stringField(out, fieldCompletionCause),
		RequestID:       requestID,
	}
	if serverID := stringField(out, fieldRequestID); serverID != "" {
		result.RequestID = serverID
	}
	return result, nil
}

func (s *remoteSession) Destroy(ctx context.Context) error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return engine.ErrSessionClosed
	}
	s.destroyed = true
	s.mu.Unlock()

	if _, _, err := s.client.invoke(ctx, methodDestroySession, map[string]any{fieldSessionID: s.id}); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}
