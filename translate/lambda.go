package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"

	"github.com/exilekit/langsync/document"
)

// lambdaInvoker is the subset of *lambda.Client used here.
type lambdaInvoker interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// LambdaRequest is the payload sent to a translator function.
type LambdaRequest struct {
	Texts     *document.Object `json:"texts"`
	Languages []string         `json:"languages"`
}

// LambdaResponse is the payload a translator function returns.
type LambdaResponse struct {
	Translations json.RawMessage `json:"translations"`
	Error        string          `json:"error,omitempty"`
}

// LambdaTranslator delegates translation calls to an AWS Lambda function.
type LambdaTranslator struct {
	client   lambdaInvoker
	function string
}

// NewLambdaTranslator loads the default AWS configuration and returns a
// translator invoking function.
func NewLambdaTranslator(ctx context.Context, function string) (*LambdaTranslator, error) {
	if function == "" {
		return nil, errors.New("lambda provider requires a function name (model)")
	}
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &LambdaTranslator{client: lambda.NewFromConfig(cfg), function: function}, nil
}

// Translate implements Translator with a synchronous function invocation.
func (l *LambdaTranslator) Translate(ctx context.Context, req Request) ([]byte, error) {
	payload, err := json.Marshal(LambdaRequest{Texts: req.Chunk, Languages: req.Languages})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	result, err := l.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName: &l.function,
		Payload:      payload,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: invoking %s: %w", ErrTransport, l.function, err)
	}
	if result.FunctionError != nil {
		return nil, fmt.Errorf("%w: lambda error: %s", ErrTransport, *result.FunctionError)
	}

	var resp LambdaResponse
	if err := json.Unmarshal(result.Payload, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse lambda payload: %v", ErrValidation, err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: translator error: %s", ErrTransport, resp.Error)
	}
	return resp.Translations, nil
}
