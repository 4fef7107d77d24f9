package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/davicafu/userlab/internal/user/domain"
)

// HTTPAuthClient habla con el servicio de identidad remoto por REST.
//
// Clasifica los fallos en las categorías que la capa de aplicación necesita
// para decidir compensaciones: servicio caído, timeout, u otro error.
type HTTPAuthClient struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

func NewHTTPAuthClient(baseURL string, timeout time.Duration, log *zap.Logger) *HTTPAuthClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPAuthClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

var _ domain.AuthPort = (*HTTPAuthClient)(nil)

type createIdentityRequest struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateIdentity da de alta las credenciales del usuario en el servicio remoto.
func (c *HTTPAuthClient) CreateIdentity(ctx context.Context, userID, email, password string) error {
	body, err := json.Marshal(createIdentityRequest{UserID: userID, Email: email, Password: password})
	if err != nil {
		return &domain.AuthError{Kind: domain.AuthOther, Op: "create", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/internal/identities", bytes.NewReader(body))
	if err != nil {
		return &domain.AuthError{Kind: domain.AuthOther, Op: "create", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return c.classifyTransport("create", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusServiceUnavailable:
		return &domain.AuthError{Kind: domain.AuthUnavailable, Op: "create", Err: fmt.Errorf("auth service returned %d", resp.StatusCode)}
	case resp.StatusCode == http.StatusGatewayTimeout:
		return &domain.AuthError{Kind: domain.AuthTimeout, Op: "create", Err: fmt.Errorf("auth service returned %d", resp.StatusCode)}
	default:
		return &domain.AuthError{Kind: domain.AuthOther, Op: "create", Err: fmt.Errorf("auth service returned %d", resp.StatusCode)}
	}
}

// DeleteIdentity elimina las credenciales remotas. Un 404 cuenta como éxito:
// el estado deseado (credenciales ausentes) ya se cumple.
func (c *HTTPAuthClient) DeleteIdentity(ctx context.Context, userID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/internal/identities/"+userID, nil)
	if err != nil {
		return &domain.AuthError{Kind: domain.AuthOther, Op: "delete", Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return c.classifyTransport("delete", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		c.log.Debug("identidad remota ya inexistente", zap.String("user_id", userID))
		return nil
	case resp.StatusCode == http.StatusServiceUnavailable:
		return &domain.AuthError{Kind: domain.AuthUnavailable, Op: "delete", Err: fmt.Errorf("auth service returned %d", resp.StatusCode)}
	case resp.StatusCode == http.StatusGatewayTimeout:
		return &domain.AuthError{Kind: domain.AuthTimeout, Op: "delete", Err: fmt.Errorf("auth service returned %d", resp.StatusCode)}
	default:
		return &domain.AuthError{Kind: domain.AuthOther, Op: "delete", Err: fmt.Errorf("auth service returned %d", resp.StatusCode)}
	}
}

func (c *HTTPAuthClient) classifyTransport(op string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &domain.AuthError{Kind: domain.AuthTimeout, Op: op, Err: err}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &domain.AuthError{Kind: domain.AuthTimeout, Op: op, Err: err}
	default:
		// Conexión rechazada, DNS, etc: el servicio no está disponible.
		return &domain.AuthError{Kind: domain.AuthUnavailable, Op: op, Err: err}
	}
}
