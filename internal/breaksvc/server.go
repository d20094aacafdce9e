package breaksvc

import (
	"context"
	"crypto/subtle"
	"errors"
	"math"
	"net"
	"strconv"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/RowanDark/cryptbreak/internal/alphabet"
	"github.com/RowanDark/cryptbreak/internal/cipher"
	"github.com/RowanDark/cryptbreak/internal/logging"
	"github.com/RowanDark/cryptbreak/internal/metrics"
	"github.com/RowanDark/cryptbreak/internal/ngram"
	"github.com/RowanDark/cryptbreak/internal/permutation"
	"github.com/RowanDark/cryptbreak/internal/substitution"
)

const (
	// maxCiphertextLen bounds the text accepted in one request.
	maxCiphertextLen = 1 << 16
	// maxRequestInt bounds integer request fields before the engines apply
	// their own limits.
	maxRequestInt = math.MaxInt32
	// maxPipelineSteps bounds the operations chained by one Apply call.
	maxPipelineSteps = 32
)

// Config wires a Server.
type Config struct {
	// Scorer defaults to the process-wide ngram.Default scorer.
	Scorer *ngram.Scorer
	// Substitution and Permutation hold per-request defaults; request fields
	// override them.
	Substitution substitution.Options
	Permutation  permutation.Options
	Detector     cipher.Detector
	Logger       *logging.AuditLogger
	// Token, when set, must accompany every call as "authorization" metadata.
	Token string
}

// Server implements BreakerServer.
type Server struct {
	scorer       *ngram.Scorer
	substitution *substitution.Engine
	permutation  *permutation.Engine
	subDefaults  substitution.Options
	permDefaults permutation.Options
	detector     cipher.Detector
	logger       *logging.AuditLogger
	token        string
}

var _ BreakerServer = (*Server)(nil)

// New builds a server from cfg.
func New(cfg Config) (*Server, error) {
	if cfg.Scorer == nil {
		cfg.Scorer = ngram.Default()
	}
	if cfg.Scorer == nil {
		return nil, errors.New("breaksvc: no scorer configured and no quadgram table loaded")
	}
	detector := cfg.Detector
	if detector == nil {
		detector = cipher.NewFrequencyDetector()
	}
	var subOpts []substitution.Option
	var permOpts []permutation.Option
	if cfg.Logger != nil {
		subOpts = append(subOpts, substitution.WithLogger(cfg.Logger.WithComponent("substitution")))
		permOpts = append(permOpts, permutation.WithLogger(cfg.Logger.WithComponent("permutation")))
	}
	return &Server{
		scorer:       cfg.Scorer,
		substitution: substitution.New(cfg.Scorer, subOpts...),
		permutation:  permutation.New(cfg.Scorer, permOpts...),
		subDefaults:  cfg.Substitution,
		permDefaults: cfg.Permutation,
		detector:     detector,
		logger:       cfg.Logger,
		token:        strings.TrimSpace(cfg.Token),
	}, nil
}

// Register attaches the service to srv.
func (s *Server) Register(srv *grpc.Server) {
	srv.RegisterService(&ServiceDesc, s)
}

// NewGRPCServer returns a grpc.Server with the service and its interceptor
// installed.
func (s *Server) NewGRPCServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(s.UnaryInterceptor())}, opts...)
	srv := grpc.NewServer(opts...)
	s.Register(srv)
	return srv
}

// Serve runs the service on lis until ctx is cancelled, then stops
// gracefully, forcing the stop after grace.
func (s *Server) Serve(ctx context.Context, lis net.Listener, grace time.Duration) error {
	srv := s.NewGRPCServer()
	go func() {
		<-ctx.Done()
		done := make(chan struct{})
		go func() {
			srv.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(grace):
			srv.Stop()
		}
	}()

	if err := srv.Serve(lis); err != nil {
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
	return nil
}

// UnaryInterceptor checks the auth token, then records metrics and an audit
// event for every call.
func (s *Server) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		if s.token != "" && !s.authorized(ctx) {
			metrics.ObserveRPC(info.FullMethod, codes.Unauthenticated.String())
			s.audit(logging.AuditEvent{
				EventType: logging.EventRPCDenied,
				Decision:  logging.DecisionDeny,
				Reason:    "invalid auth token",
				Metadata:  map[string]any{"method": info.FullMethod},
			})
			return nil, status.Error(codes.Unauthenticated, "invalid auth token")
		}

		resp, err := handler(ctx, req)
		code := status.Code(err)
		metrics.ObserveRPC(info.FullMethod, code.String())
		event := logging.AuditEvent{
			EventType: logging.EventRPCCall,
			Decision:  logging.DecisionAllow,
			Metadata: map[string]any{
				"method":     info.FullMethod,
				"code":       code.String(),
				"elapsed_ms": time.Since(start).Milliseconds(),
			},
		}
		if err != nil {
			event.Reason = status.Convert(err).Message()
		}
		s.audit(event)
		return resp, err
	}
}

func (s *Server) authorized(ctx context.Context) bool {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return false
	}
	for _, v := range md.Get("authorization") {
		v = strings.TrimSpace(strings.TrimPrefix(v, "Bearer "))
		if subtle.ConstantTimeCompare([]byte(v), []byte(s.token)) == 1 {
			return true
		}
	}
	return false
}

func (s *Server) audit(event logging.AuditEvent) {
	if s.logger == nil {
		return
	}
	_ = s.logger.Emit(event)
}

// BreakSubstitution runs the substitution engine on req.ciphertext.
func (s *Server) BreakSubstitution(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := fields{req}
	ciphertext, err := r.ciphertext()
	if err != nil {
		return nil, err
	}
	opts := s.subDefaults
	if opts.Iterations, err = r.intOr("iterations", opts.Iterations); err != nil {
		return nil, err
	}
	if opts.Restarts, err = r.intOr("restarts", opts.Restarts); err != nil {
		return nil, err
	}
	if opts.Seed, err = r.seedOr(opts.Seed); err != nil {
		return nil, err
	}
	if opts.FrequencyOnly, err = r.boolOr("frequency_only", opts.FrequencyOnly); err != nil {
		return nil, err
	}

	res, err := s.substitution.Break(ctx, ciphertext, opts)
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{
		"run_id":     res.RunID,
		"plaintext":  res.Plaintext,
		"score":      res.Score,
		"seed_score": res.SeedScore,
		"mapping":    res.Mapping.String(),
		"mode":       string(res.Mode),
		"passes":     res.Passes,
	})
}

// BreakPermutation runs the permutation engine on req.ciphertext with
// req.key_length columns.
func (s *Server) BreakPermutation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := fields{req}
	ciphertext, err := r.ciphertext()
	if err != nil {
		return nil, err
	}
	keyLength, err := r.intOr("key_length", 0)
	if err != nil {
		return nil, err
	}
	if keyLength <= 0 {
		return nil, status.Error(codes.InvalidArgument, "key_length must be a positive integer")
	}
	opts := s.permDefaults
	if opts.Temperature, err = r.floatOr("temperature", opts.Temperature); err != nil {
		return nil, err
	}
	if opts.CoolingRate, err = r.floatOr("cooling_rate", opts.CoolingRate); err != nil {
		return nil, err
	}
	if opts.Iterations, err = r.intOr("iterations", opts.Iterations); err != nil {
		return nil, err
	}
	if opts.Attempts, err = r.intOr("attempts", opts.Attempts); err != nil {
		return nil, err
	}
	if opts.Seed, err = r.seedOr(opts.Seed); err != nil {
		return nil, err
	}

	res, err := s.permutation.Break(ctx, ciphertext, keyLength, opts)
	if err != nil {
		return nil, toStatus(err)
	}
	key := make([]any, len(res.Key))
	for i, v := range res.Key {
		key[i] = v
	}
	return structpb.NewStruct(map[string]any{
		"run_id":    res.RunID,
		"plaintext": res.Plaintext,
		"score":     res.Score,
		"key":       key,
		"mode":      string(res.Mode),
	})
}

// Score returns the quadgram score of req.text.
func (s *Server) Score(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	text, err := fields{req}.text("text")
	if err != nil {
		return nil, err
	}
	return structpb.NewStruct(map[string]any{
		"score":   s.scorer.Score(text),
		"letters": len(alphabet.Letters(text)),
	})
}

// Detect classifies req.ciphertext.
func (s *Server) Detect(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ciphertext, err := fields{req}.ciphertext()
	if err != nil {
		return nil, err
	}
	results, err := s.detector.Detect(ctx, []byte(ciphertext))
	if err != nil {
		return nil, toStatus(err)
	}
	list := make([]any, len(results))
	for i, r := range results {
		list[i] = map[string]any{
			"kind":       string(r.Kind),
			"confidence": r.Confidence,
			"reasoning":  r.Reasoning,
			"operation":  r.Operation,
		}
	}
	return structpb.NewStruct(map[string]any{"results": list})
}

// Apply runs registered cipher operations over req.text, typically to decrypt
// with a key recovered by an earlier break. The chain is given either as
// req.steps, a list of {name, parameters} objects, or as a single
// req.operation with req.parameters. With req.reverse the inverse chain runs.
func (s *Server) Apply(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := fields{req}
	text, err := r.text("text")
	if err != nil {
		return nil, err
	}
	pipeline, err := r.pipeline()
	if err != nil {
		return nil, err
	}
	reverse, err := r.boolOr("reverse", false)
	if err != nil {
		return nil, err
	}
	if reverse {
		if pipeline, err = pipeline.Reverse(); err != nil {
			return nil, toStatus(err)
		}
	}

	out, err := pipeline.Execute(ctx, []byte(text))
	if err != nil {
		return nil, toStatus(err)
	}
	names := make([]any, len(pipeline.Operations))
	for i, op := range pipeline.Operations {
		names[i] = op.Name
	}
	return structpb.NewStruct(map[string]any{
		"output":     string(out),
		"operations": names,
	})
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, substitution.ErrInvalidOptions),
		errors.Is(err, permutation.ErrInvalidOptions),
		errors.Is(err, permutation.ErrInvalidKeyLength),
		errors.Is(err, cipher.ErrUnknownOperation),
		errors.Is(err, cipher.ErrMissingParameter),
		errors.Is(err, cipher.ErrNotReversible),
		errors.Is(err, cipher.ErrInvalidKey),
		errors.Is(err, cipher.ErrInvalidMapping):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// fields reads typed values out of a request struct, reporting problems as
// InvalidArgument.
type fields struct {
	s *structpb.Struct
}

func (f fields) value(name string) (*structpb.Value, bool) {
	if f.s == nil {
		return nil, false
	}
	v, ok := f.s.GetFields()[name]
	if !ok {
		return nil, false
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, false
	}
	return v, true
}

func (f fields) text(name string) (string, error) {
	v, ok := f.value(name)
	if !ok {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	str, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", status.Errorf(codes.InvalidArgument, "%s must be a string", name)
	}
	if len(str.StringValue) > maxCiphertextLen {
		return "", status.Errorf(codes.InvalidArgument, "%s exceeds %d bytes", name, maxCiphertextLen)
	}
	return str.StringValue, nil
}

func (f fields) ciphertext() (string, error) {
	text, err := f.text("ciphertext")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", status.Error(codes.InvalidArgument, "ciphertext must not be empty")
	}
	return text, nil
}

// pipeline builds the operation chain of an Apply request. Every step must
// name a registered operation.
func (f fields) pipeline() (*cipher.Pipeline, error) {
	var steps []*structpb.Value
	if v, ok := f.value("steps"); ok {
		list, ok := v.GetKind().(*structpb.Value_ListValue)
		if !ok {
			return nil, status.Error(codes.InvalidArgument, "steps must be a list")
		}
		steps = list.ListValue.GetValues()
		if _, both := f.value("operation"); both {
			return nil, status.Error(codes.InvalidArgument, "give either steps or operation, not both")
		}
	} else if v, ok := f.value("operation"); ok {
		step := map[string]*structpb.Value{"name": v}
		if params, ok := f.value("parameters"); ok {
			step["parameters"] = params
		}
		steps = []*structpb.Value{structpb.NewStructValue(&structpb.Struct{Fields: step})}
	}
	if len(steps) == 0 {
		return nil, status.Error(codes.InvalidArgument, "steps or operation is required")
	}
	if len(steps) > maxPipelineSteps {
		return nil, status.Errorf(codes.InvalidArgument, "at most %d steps are allowed", maxPipelineSteps)
	}

	p := &cipher.Pipeline{Operations: make([]cipher.OperationConfig, 0, len(steps)), Reversible: true}
	for i, step := range steps {
		obj, ok := step.GetKind().(*structpb.Value_StructValue)
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "step %d must be an object", i)
		}
		sf := fields{obj.StructValue}
		name, err := sf.text("name")
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "step %d: %s", i, status.Convert(err).Message())
		}
		if _, ok := cipher.GetOperation(name); !ok {
			return nil, status.Errorf(codes.InvalidArgument, "step %d: unknown operation %q", i, name)
		}
		cfg := cipher.OperationConfig{Name: name}
		if pv, ok := sf.value("parameters"); ok {
			params, ok := pv.GetKind().(*structpb.Value_StructValue)
			if !ok {
				return nil, status.Errorf(codes.InvalidArgument, "step %d: parameters must be an object", i)
			}
			cfg.Parameters = params.StructValue.AsMap()
		}
		p.Operations = append(p.Operations, cfg)
	}
	return p, nil
}

func (f fields) floatOr(name string, def float64) (float64, error) {
	v, ok := f.value(name)
	if !ok {
		return def, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a number", name)
	}
	return n.NumberValue, nil
}

func (f fields) intOr(name string, def int) (int, error) {
	v, ok := f.value(name)
	if !ok {
		return def, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue != math.Trunc(n.NumberValue) {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be an integer", name)
	}
	if math.Abs(n.NumberValue) > maxRequestInt {
		return 0, status.Errorf(codes.InvalidArgument, "%s must not exceed %d in magnitude", name, maxRequestInt)
	}
	return int(n.NumberValue), nil
}

func (f fields) boolOr(name string, def bool) (bool, error) {
	v, ok := f.value(name)
	if !ok {
		return def, nil
	}
	b, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return false, status.Errorf(codes.InvalidArgument, "%s must be a boolean", name)
	}
	return b.BoolValue, nil
}

// seedOr accepts the seed as a non-negative integer number or, for values
// beyond float64 precision, a decimal string.
func (f fields) seedOr(def uint64) (uint64, error) {
	v, ok := f.value("seed")
	if !ok {
		return def, nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		if k.NumberValue < 0 || k.NumberValue != float64(uint64(k.NumberValue)) {
			return 0, status.Error(codes.InvalidArgument, "seed must be a non-negative integer")
		}
		return uint64(k.NumberValue), nil
	case *structpb.Value_StringValue:
		seed, err := strconv.ParseUint(strings.TrimSpace(k.StringValue), 10, 64)
		if err != nil {
			return 0, status.Errorf(codes.InvalidArgument, "seed: %v", err)
		}
		return seed, nil
	default:
		return 0, status.Error(codes.InvalidArgument, "seed must be a number or string")
	}
}
