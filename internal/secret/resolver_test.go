package secret

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSSMClient struct {
	params map[string]string
}

func (f *fakeSSMClient) GetParameter(_ context.Context, input *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	val, ok := f.params[*input.Name]
	if !ok {
		return nil, fmt.Errorf("parameter not found: %s", *input.Name)
	}
	return &ssm.GetParameterOutput{
		Parameter: &ssmtypes.Parameter{
			Name:  input.Name,
			Value: aws.String(val),
		},
	}, nil
}

func TestSSMResolver_GetSecret_Success(t *testing.T) {
	client := &fakeSSMClient{
		params: map[string]string{
			"/udecfit/jwt-secret": "super-secret-value",
		},
	}
	resolver := NewSSMResolver(client)

	val, err := resolver.GetSecret(context.Background(), "/udecfit/jwt-secret")
	require.NoError(t, err)
	assert.Equal(t, "super-secret-value", val)
}

func TestSSMResolver_GetSecret_NotFound(t *testing.T) {
	resolver := NewSSMResolver(&fakeSSMClient{params: map[string]string{}})

	_, err := resolver.GetSecret(context.Background(), "/udecfit/nonexistent")
	assert.Error(t, err)
}

func TestEnvResolver_GetSecret_Success(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret-value")

	resolver := NewEnvResolver()

	val, err := resolver.GetSecret(context.Background(), "/udecfit/jwt-secret")
	require.NoError(t, err)
	assert.Equal(t, "env-secret-value", val)
}

func TestEnvResolver_GetSecret_NotSet(t *testing.T) {
	resolver := NewEnvResolver()

	_, err := resolver.GetSecret(context.Background(), "/udecfit/nonexistent-secret")
	assert.Error(t, err)
}

func TestParamNameToEnvVar(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/udecfit/jwt-secret", "JWT_SECRET"},
		{"/udecfit/api-gateway-secret", "API_GATEWAY_SECRET"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.expected, paramNameToEnvVar(tc.input))
	}
}
