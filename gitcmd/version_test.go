package gitcmd_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/forksync/gitcmd"
	"github.com/input-output-hk/catalyst-forge-libs/forksync/gitcmd/gitcmdtest"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    string
		wantErr bool
	}{
		{name: "plain", out: "git version 2.43.0\n", want: "2.43.0"},
		{name: "apple", out: "git version 2.39.3 (Apple Git-146)", want: "2.39.3"},
		{name: "windows", out: "git version 2.45.1.windows.1", want: "2.45.1"},
		{name: "two parts", out: "git version 2.7", want: "2.7.0"},
		{name: "empty", out: "git version", wantErr: true},
		{name: "garbage", out: "git version banana", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := gitcmd.ParseVersion(tt.out)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.String())
		})
	}
}

func TestCheckVersion(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		wantErr string
	}{
		{name: "recent", out: "git version 2.43.0"},
		{name: "minimum", out: "git version 2.7.0"},
		{name: "too old", out: "git version 1.9.5", wantErr: "too old"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := gitcmdtest.NewFake().On(tt.out, "version")

			v, err := gitcmd.CheckVersion(context.Background(), fake)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, v)
		})
	}
}

func TestCheckVersionCommandFails(t *testing.T) {
	fake := gitcmdtest.NewFake()

	_, err := gitcmd.CheckVersion(context.Background(), fake)
	require.Error(t, err)

	var cmdErr *gitcmd.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 128, cmdErr.ExitCode)
}
