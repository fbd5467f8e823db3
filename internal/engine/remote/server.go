package remote

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/estelamoura/unimrcp/internal/engine"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServerConfig controls the exported Recognizer service.
type ServerConfig struct {
	// Token, when set, is required as a bearer authorization header.
	Token  string
	Logger *slog.Logger
}

// NewServer returns a gRPC server with the authorization interceptor installed.
func NewServer(cfg ServerConfig, opts ...grpc.ServerOption) *grpc.Server {
	if cfg.Token != "" {
		opts = append(opts, grpc.ChainUnaryInterceptor(authInterceptor(cfg.Token)))
	}
	return grpc.NewServer(opts...)
}

// Register exposes eng as the Recognizer service on s together with the
// standard health service. The returned health server lets callers flip the
// serving status on shutdown.
func Register(s *grpc.Server, eng engine.Engine, logger *slog.Logger) *health.Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s.RegisterService(&serviceDesc, &recognizerServer{
		engine:   eng,
		logger:   logger,
		sessions: make(map[string]engine.Session),
	})

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return hs
}

type recognizerHandler func(*recognizerServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateSession", Handler: unary(methodCreateSession, (*recognizerServer).createSession)},
		{MethodName: "RecognizeFile", Handler: unary(methodRecognizeFile, (*recognizerServer).recognizeFile)},
		{MethodName: "DestroySession", Handler: unary(methodDestroySession, (*recognizerServer).destroySession)},
		{MethodName: "SetLogPriority", Handler: unary(methodSetLogPriority, (*recognizerServer).setLogPriority)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "asrclient/v1/recognizer.proto",
}

func unary(fullMethod string, fn recognizerHandler) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return fn(srv.(*recognizerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return fn(srv.(*recognizerServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

type recognizerServer struct {
	engine engine.Engine
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]engine.Session
}

func (r *recognizerServer) createSession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	profile := strings.TrimSpace(stringField(in, fieldProfile))
	if profile == "" {
		return nil, status.Error(codes.InvalidArgument, "profile is required")
	}

	sess, err := r.engine.CreateSession(ctx, profile)
	if err != nil {
		if errors.Is(err, engine.ErrUnknownProfile) {
			return nil, status.Error(codes.NotFound, err.Error())
		}
		return nil, status.Error(codes.Unavailable, err.Error())
	}

	id := uuid.NewString()
	r.mu.Lock()
	r.sessions[id] = sess
	r.mu.Unlock()

	r.logger.Info("session created", "engine_session", id, "profile", profile, "request_id", requestIDFrom(ctx))
	return structpb.NewStruct(map[string]any{fieldSessionID: id})
}

func (r *recognizerServer) lookup(in *structpb.Struct) (string, engine.Session, error) {
	id := stringField(in, fieldSessionID)
	if id == "" {
		return "", nil, status.Error(codes.InvalidArgument, "session_id is required")
	}
	r.mu.Lock()
	sess, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return "", nil, status.Errorf(codes.FailedPrecondition, "session %s is not open", id)
	}
	return id, sess, nil
}

func (r *recognizerServer) recognizeFile(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, sess, err := r.lookup(in)
	if err != nil {
		return nil, err
	}
	pcm, err := audioField(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	result, err := sess.RecognizeFile(ctx, engine.FileRequest{
		GrammarURI:     stringField(in, fieldGrammarURI),
		InputFile:      stringField(in, fieldInputFile),
		GrammarContent: stringField(in, fieldGrammarContent),
		Audio:          pcm,
		Directives: engine.Directives{
			SendDefineGrammar: boolField(in, fieldSendDefineGrammar),
			SendSetParams:     boolField(in, fieldSendSetParams),
		},
	})
	if err != nil {
		if errors.Is(err, engine.ErrSessionClosed) {
			return nil, status.Error(codes.FailedPrecondition, err.Error())
		}
		r.logger.Warn("recognition failed", "engine_session", id, "error", err.Error())
		return nil, status.Error(codes.Internal, err.Error())
	}

	requestID := requestIDFrom(ctx)
	if requestID == "" {
		requestID = result.RequestID
	}
	return structpb.NewStruct(map[string]any{
		fieldSegments:        resultSegments(result.Text),
		fieldCompletionCause: result.CompletionCause,
		fieldRequestID:       requestID,
	})
}

func (r *recognizerServer) destroySession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, sess, err := r.lookup(in)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()

	if err := sess.Destroy(ctx); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	r.logger.Info("session destroyed", "engine_session", id)
	return &structpb.Struct{}, nil
}

func (r *recognizerServer) setLogPriority(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	r.engine.SetLogPriority(int(numberField(in, fieldPriority)))
	return &structpb.Struct{}, nil
}

func requestIDFrom(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(headerRequestID); len(values) > 0 {
		return values[0]
	}
	return ""
}

func authInterceptor(token string) grpc.UnaryServerInterceptor {
	want := []byte("Bearer " + token)
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if strings.HasPrefix(info.FullMethod, "/grpc.health.v1.Health/") {
			return handler(ctx, req)
		}
		md, _ := metadata.FromIncomingContext(ctx)
		values := md.Get(headerAuthorization)
		if len(values) == 0 || subtle.ConstantTimeCompare([]byte(values[0]), want) != 1 {
			return nil, status.Error(codes.Unauthenticated, "missing or invalid bearer token")
		}
		return handler(ctx, req)
	}
}
