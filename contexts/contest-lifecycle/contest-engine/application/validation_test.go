package application

import (
	"testing"

	domainerrors "devquest/contexts/contest-lifecycle/contest-engine/domain/errors"

	"github.com/stretchr/testify/require"
)

type githubInput struct {
	GithubUser string `validate:"omitempty,max=39,github_username"`
}

func TestNewValidatorRegistersGithubUsername(t *testing.T) {
	v, err := newValidator()
	require.NoError(t, err)
	require.NoError(t, v.Struct(githubInput{GithubUser: "octo-cat"}))
	require.Error(t, v.Struct(githubInput{GithubUser: "octo--cat"}))
}

func TestValidateStructMapsGithubUsernameFailures(t *testing.T) {
	require.NoError(t, ValidateStruct(githubInput{}))
	require.NoError(t, ValidateStruct(githubInput{GithubUser: "a1-b2"}))

	for _, name := range []string{"-bad", "bad-", "bad--name", "bad_name"} {
		err := ValidateStruct(githubInput{GithubUser: name})
		require.ErrorIs(t, err, domainerrors.ErrValidation, name)
		require.Contains(t, err.Error(), "GithubUser:github_username", name)
	}
}
