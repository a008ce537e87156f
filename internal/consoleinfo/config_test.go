package consoleinfo

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestRegisterFlags_BindsToViper(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	v := viper.New()
	RegisterFlags(cmd, v)

	require.NoError(t, cmd.PersistentFlags().Set(FlagOlcServerPort, "12345"))
	require.NoError(t, cmd.PersistentFlags().Set(FlagEnableOlcServer, "true"))
	require.NoError(t, cmd.PersistentFlags().Set(FlagOlcServerPath, "/opt/olc/server"))

	require.Equal(t, 12345, v.GetInt(FlagOlcServerPort))
	require.True(t, v.GetBool(FlagEnableOlcServer))
	require.Equal(t, "/opt/olc/server", v.GetString(FlagOlcServerPath))
}

func TestNew_ReadsEnvAndFlags(t *testing.T) {
	t.Setenv(EnvUseNewOlcServer, "true")
	t.Setenv(EnvUseTfRetry, "false")

	cmd := &cobra.Command{Use: "test"}
	v := viper.New()
	RegisterFlags(cmd, v)
	require.NoError(t, cmd.PersistentFlags().Set(FlagOlcServerPort, "8080"))
	require.NoError(t, cmd.PersistentFlags().Set(FlagOlcServerMinLogRecordImportance, "2"))

	info := New(v)
	require.True(t, info.UseNewOlcServer)
	require.False(t, info.UseTfRetry)
	require.Equal(t, 8080, info.OlcServerPort)
	require.Equal(t, int32(2), info.OlcServerMinLogRecordImportance)
	require.NotEmpty(t, info.ClientId())
}

func TestNew_GeneratesDistinctClientIds(t *testing.T) {
	v := viper.New()
	a := New(v)
	b := New(v)
	require.NotEqual(t, a.ClientId(), b.ClientId())
}

func TestConsoleInfo_XtsRootDirectoryRoundTrip(t *testing.T) {
	info := New(viper.New())

	_, ok := info.XtsRootDirectory()
	require.False(t, ok)

	info.SetXtsRootDirectory("/xts")
	dir, ok := info.XtsRootDirectory()
	require.True(t, ok)
	require.Equal(t, "/xts", dir)
}

func TestConsoleInfo_LastCommandAndShouldExit(t *testing.T) {
	info := New(viper.New())
	require.Nil(t, info.LastCommand())
	require.False(t, info.ShouldExit())

	now := time.Unix(1700000000, 0)
	info.RecordCommand("run foo", now)
	require.Equal(t, &CommandRecord{Name: "run foo", At: now}, info.LastCommand())

	info.SetShouldExit(true)
	require.True(t, info.ShouldExit())
}
