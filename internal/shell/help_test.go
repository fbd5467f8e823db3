package shell

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/estelamoura/unimrcp/internal/config"
)

func TestHelpTextRendersParameterTables(t *testing.T) {
	cfg := config.Default()
	text := HelpText(cfg, []string{"uni1", "uni2"})

	for _, want := range []string{
		"    run <send_set_params> <send_define_grammar> <grammar_uri> <audio_input_file> [recogs_repetition] [profile_name]\n",
		"            |__________________________________|\n",
		"            |  confidence_threshold = 0.9      |\n",
		"            |  n_best_list_length = 2          |\n",
		"            |  no_input_timeout = 1000         |\n",
		"            |  recognition_timeout = 5000      |\n",
		"            |  start_input_timers = FALSE      |\n",
		"        |  confidence_threshold = 0.7      |\n",
		"        |  n_best_list_length = 4          |\n",
		"        |  no_input_timeout = 2000         |\n",
		"        |  recognition_timeout = 11000     |\n",
		"        |  start_input_timers = TRUE       |\n",
		"       6- profile_name: is one of 'uni1', 'uni2' (default = uni2)\n",
		"    loglevel [level] (set loglevel, one of 0,1...7)\n",
		"    quit, exit\n",
	} {
		require.Contains(t, text, want)
	}
	require.NotContains(t, text, "you can add more")
}

func TestHelpTextFollowsConfiguration(t *testing.T) {
	cfg := config.Default()
	cfg.SetParams.ConfidenceThreshold = 0.55
	cfg.Recognize.StartInputTimers = false
	cfg.Session.DefaultProfile = "uni1"
	cfg.Session.ProfilesFile = "/etc/asrclient/profiles.yaml"

	text := HelpText(cfg, []string{"uni1"})
	require.Contains(t, text, "|  confidence_threshold = 0.55     |")
	require.NotContains(t, text, "start_input_timers = TRUE")
	require.Contains(t, text, "is one of 'uni1' (default = uni1)")
	require.Contains(t, text, "(you can add more in the file /etc/asrclient/profiles.yaml)")
}
