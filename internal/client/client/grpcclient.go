package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/taxbox/internal/client/models"
	"github.com/dmitrijs2005/taxbox/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Full method names of the TaxBox gRPC service.
const (
	serviceName = "/taxbox.v1.TaxBox/"

	methodLogin          = serviceName + "Login"
	methodRegister       = serviceName + "Register"
	methodRefreshToken   = serviceName + "RefreshToken"
	methodPing           = serviceName + "Ping"
	methodListTaxReturns = serviceName + "ListTaxReturns"
	methodUpload         = serviceName + "UploadDocument"
	methodExport         = serviceName + "ExportTaxReturn"
)

// publicMethods are called without an access token.
var publicMethods = map[string]bool{
	methodLogin:        true,
	methodRegister:     true,
	methodRefreshToken: true,
	methodPing:         true,
}

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	tokens      tokenStore
	opts        options
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

// accessTokenInterceptor attaches the access token to protected calls. An
// expired token is refreshed once, either up front when its exp has passed
// or after the server rejects it, and the call is retried.
func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if publicMethods[method] {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	access, _ := s.tokens.get()
	if access == "" {
		return ErrUnauthorized
	}
	if tokenExpired(access, s.opts.clock.Now()) {
		if err := s.refresh(ctx, cc, invoker, opts...); err != nil {
			return err
		}
		access, _ = s.tokens.get()
	}

	err := invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}

	if err := s.refresh(ctx, cc, invoker, opts...); err != nil {
		return err
	}
	access, _ = s.tokens.get()
	return invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
}

func (s *GRPCClient) refresh(ctx context.Context, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	_, refresh := s.tokens.get()
	if refresh == "" || tokenExpired(refresh, s.opts.clock.Now()) {
		return ErrSessionExpired
	}

	var resp tokenResponse
	if err := invoker(ctx, methodRefreshToken, &refreshRequest{RefreshToken: refresh}, &resp, cc, opts...); err != nil {
		s.opts.log.Warn(ctx, "token refresh failed", "error", err)
		if mapped := s.mapError(err); errors.Is(mapped, ErrUnavailable) {
			return mapped
		}
		return ErrSessionExpired
	}

	if resp.RefreshToken == "" {
		resp.RefreshToken = refresh
	}
	s.tokens.set(resp.AccessToken, resp.RefreshToken)
	return nil
}

func NewGRPCClient(endpointURL string, opts ...Option) (*GRPCClient, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	c := &GRPCClient{endpointURL: endpointURL, opts: o}
	if err := c.InitGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
	}, s.opts.dialOptions...)

	conn, err := grpc.NewClient(s.endpointURL, dialOpts...)
	if err != nil {
		return err
	}
	s.conn = conn
	return nil
}

func (s *GRPCClient) call(ctx context.Context, method string, req, resp any) error {
	if s.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.timeout)
		defer cancel()
	}
	if err := s.conn.Invoke(ctx, method, req, resp); err != nil {
		s.opts.log.Debug(ctx, "rpc failed", "method", method, "error", err)
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	var resp tokenResponse
	if err := s.call(ctx, methodLogin, &loginRequest{Email: email, Password: password}, &resp); err != nil {
		return models.User{}, err
	}

	s.tokens.set(resp.AccessToken, resp.RefreshToken)
	if resp.User == nil {
		return models.User{Email: email}, nil
	}
	return *resp.User, nil
}

func (s *GRPCClient) CreateAccount(ctx context.Context, email, fullName, password string) error {
	return s.call(ctx, methodRegister, &registerRequest{Email: email, FullName: fullName, Password: password}, &empty{})
}

func (s *GRPCClient) Logout() {
	s.tokens.clear()
}

func (s *GRPCClient) FetchRecords(ctx context.Context) ([]models.TaxReturn, error) {
	var resp listReturnsResponse
	if err := s.call(ctx, methodListTaxReturns, &listReturnsRequest{}, &resp); err != nil {
		return nil, err
	}
	return resp.TaxReturns, nil
}

// UploadDocument sends the whole document in one unary call. progress is
// not called; see StreamsProgress.
func (s *GRPCClient) UploadDocument(ctx context.Context, doc models.Document, _ func(percent int)) error {
	r, err := doc.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", doc.Name, err)
	}
	defer r.Close()

	content, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read %s: %w", doc.Name, err)
	}

	req := &uploadRequest{Filename: doc.Name, ContentType: doc.ContentType, Content: content}
	return s.call(ctx, methodUpload, req, &uploadResponse{})
}

func (s *GRPCClient) StreamsProgress() bool { return false }

func (s *GRPCClient) ExportRecord(ctx context.Context, id string) (models.Blob, error) {
	var resp exportResponse
	if err := s.call(ctx, methodExport, &exportRequest{ID: id}, &resp); err != nil {
		return models.Blob{}, err
	}
	if resp.ContentType == "" {
		resp.ContentType = "application/json"
	}
	return models.Blob{Data: resp.Data, ContentType: resp.ContentType}, nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	var resp pingResponse
	if err := s.call(ctx, methodPing, &empty{}, &resp); err != nil {
		return err
	}

	if !strings.EqualFold(resp.Status, "ok") {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{ErrSessionExpired, ErrUnauthorized, ErrUnavailable} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}

	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return ErrUnavailable
	case codes.AlreadyExists:
		return ErrConflict
	case codes.NotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
