// Package paramstore reads runtime overrides from AWS SSM Parameter Store.
package paramstore

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/keithlinneman/jslearn-web/internal/xerrors"
)

// ErrNotFound means the parameter does not exist.
var ErrNotFound = errors.New("parameter not found")

// SSMAPI is the subset of the SSM client used here.
type SSMAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

type Reader struct {
	client SSMAPI
}

func New(client SSMAPI) (*Reader, error) {
	if client == nil {
		return nil, xerrors.New("ssm client is required")
	}
	return &Reader{client: client}, nil
}

// Get returns the trimmed value of the named parameter. SecureString values
// are decrypted. An empty value is an error.
func (r *Reader) Get(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", xerrors.New("parameter name is required")
	}

	out, err := r.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		var nf *types.ParameterNotFound
		if errors.As(err, &nf) {
			return "", xerrors.Wrapf(ErrNotFound, "SSM parameter %s", name)
		}
		return "", xerrors.Wrapf(err, "get SSM parameter %s", name)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", xerrors.Newf("SSM parameter %s has no value", name)
	}

	v := strings.TrimSpace(*out.Parameter.Value)
	if v == "" {
		return "", xerrors.Newf("SSM parameter %s is empty", name)
	}
	return v, nil
}
