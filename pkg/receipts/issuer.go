package receipts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Omkark04/agency-platform-backend/pkg/config"
)

// Issuer produces a durable receipt reference for a settled transaction.
type Issuer interface {
	Issue(ctx context.Context, transactionID uuid.UUID) (string, error)
}

type urlIssuer struct {
	baseURL string
}

// NewIssuer returns an Issuer that derives receipt URLs from the configured
// public base. The URL is stable for a given transaction, so re-issuing is
// harmless.
func NewIssuer(cfg config.ReceiptsConfig) (Issuer, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("receipts base url is required")
	}
	return &urlIssuer{baseURL: base}, nil
}

func (i *urlIssuer) Issue(_ context.Context, transactionID uuid.UUID) (string, error) {
	if transactionID == uuid.Nil {
		return "", errors.New("transaction id is required")
	}
	return fmt.Sprintf("%s/receipts/%s", i.baseURL, transactionID), nil
}
