package olcclient

import "github.com/google/device-infra-sub009/internal/olcpb"

// DefaultPluginLabel is used when a caller doesn't supply an explicit
// plugin label.
const DefaultPluginLabel = "ats_console_session_plugin"

// buildSessionConfig assembles the single-plugin envelope every session
// carries: one plugin entry keyed by label, with a loading
// config naming the plugin class and an execution config wrapping the
// caller's opaque payload. This is the one place the envelope shape is
// built; it must never leak into SessionStub's callers.
func buildSessionConfig[Payload, Output any](name, label, pluginClassName string, payload Payload, codec Codec[Payload, Output]) (*olcpb.SessionConfig, error) {
	if label == "" {
		label = DefaultPluginLabel
	}

	anyPayload, err := codec.marshalPayload(payload)
	if err != nil {
		return nil, NewError(ErrorKindCreateSession, err)
	}

	return &olcpb.SessionConfig{
		SessionName: name,
		SessionPluginConfigs: map[string]*olcpb.SessionPluginConfig{
			label: {
				Loading:   &olcpb.PluginLoadingConfig{PluginClassName: pluginClassName},
				Execution: &olcpb.PluginExecutionConfig{Config: anyPayload},
			},
		},
	}, nil
}
