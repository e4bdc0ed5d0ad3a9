// Package vault implements the credential pipeline's invocation stage
// (spec.md §4.4 step 2): calling the configured cloud vault function via
// workload identity, with no application-level secrets.
package vault

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"

	"testprobe/internal/config"
	"testprobe/internal/probeerrors"
)

// Invoker calls a provider's vault function with a JSON request body and
// returns the raw JSON response.
type Invoker interface {
	Invoke(ctx context.Context, requestBody string) ([]byte, error)
}

// NewInvoker resolves an Invoker for the given provider config.
func NewInvoker(ctx context.Context, provider string, providerCfg config.VaultProviderConfig) (Invoker, error) {
	switch provider {
	case "aws":
		return newLambdaInvoker(ctx, providerCfg.LambdaARN)
	case "azure":
		return newHTTPInvoker(providerCfg.FunctionURL, providerCfg.FunctionKeyEnv, "x-functions-key")
	case "gcp":
		return newHTTPInvoker(providerCfg.FunctionURL, "", "")
	default:
		return nil, probeerrors.New(probeerrors.KindConfiguration, "unknown vault provider %q", provider)
	}
}

// lambdaInvoker invokes an AWS Lambda by ARN using the SDK's default
// credential chain.
type lambdaInvoker struct {
	client *lambda.Client
	arn    string
}

func newLambdaInvoker(ctx context.Context, arn string) (*lambdaInvoker, error) {
	if arn == "" {
		return nil, probeerrors.New(probeerrors.KindConfiguration, "vault.providers.aws.lambdaArn not configured")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, probeerrors.Wrap(probeerrors.KindVault, fmt.Errorf("loading AWS config: %w", err))
	}
	return &lambdaInvoker{client: lambda.NewFromConfig(cfg), arn: arn}, nil
}

func (l *lambdaInvoker) Invoke(ctx context.Context, requestBody string) ([]byte, error) {
	out, err := l.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName: aws.String(l.arn),
		Payload:      []byte(requestBody),
	})
	if err != nil {
		return nil, probeerrors.Wrap(probeerrors.KindVault, fmt.Errorf("invoking lambda %s: %w", l.arn, err))
	}
	if out.FunctionError != nil {
		return nil, probeerrors.New(probeerrors.KindVault, "lambda %s returned function error: %s", l.arn, aws.ToString(out.FunctionError))
	}
	return out.Payload, nil
}

// httpInvoker POSTs the request body to an Azure Function or GCP Cloud
// Function URL. The Azure function key, when present, is infrastructure
// config carried as a header, not an application secret (spec.md §4.4
// step 2).
type httpInvoker struct {
	url          string
	keyHeader    string
	keyHeaderVal string
	client       *http.Client
}

func newHTTPInvoker(url, keyEnv, keyHeader string) (*httpInvoker, error) {
	if url == "" {
		return nil, probeerrors.New(probeerrors.KindConfiguration, "vault function URL not configured")
	}
	var keyVal string
	if keyEnv != "" {
		keyVal = os.Getenv(keyEnv)
	}
	return &httpInvoker{url: url, keyHeader: keyHeader, keyHeaderVal: keyVal, client: &http.Client{}}, nil
}

func (h *httpInvoker) Invoke(ctx context.Context, requestBody string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewBufferString(requestBody))
	if err != nil {
		return nil, probeerrors.Wrap(probeerrors.KindVault, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.keyHeader != "" && h.keyHeaderVal != "" {
		req.Header.Set(h.keyHeader, h.keyHeaderVal)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, probeerrors.Wrap(probeerrors.KindVault, fmt.Errorf("calling vault function %s: %w", h.url, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, probeerrors.Wrap(probeerrors.KindVault, err)
	}
	if resp.StatusCode >= 300 {
		return nil, probeerrors.New(probeerrors.KindVault, "vault function %s returned status %d", h.url, resp.StatusCode).
			WithDetails(string(body))
	}
	return body, nil
}
