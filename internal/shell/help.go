package shell

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/estelamoura/unimrcp/internal/config"
)

const tableWidth = 34

// HelpText renders the console usage. The SET-PARAMS and RECOGNIZE tables
// show the values the engine actually sends.
func HelpText(cfg config.Config, profiles []string) string {
	var b strings.Builder

	b.WriteString("\nUsage:\n\n")
	b.WriteString("    run <send_set_params> <send_define_grammar> <grammar_uri> <audio_input_file> [recogs_repetition] [profile_name]\n\n")
	b.WriteString("       1- send_set_params: 'y' to send SET-PARAMS message or any other value to not send it\n")
	b.WriteString("          The sent parameters are:\n")
	writeParamTable(&b, "            ", cfg.SetParams)
	b.WriteString("\n")
	b.WriteString("       2- send_define_grammar: 'y' to send DEFINE-GRAMMAR message or any other value to not send it\n\n")
	b.WriteString("       3- grammar_uri: is the path of the slm or grammar to be used in the recognition\n\n")
	b.WriteString("       4- audio_input_file: is the name of an audio file (if the audio is in the data dir)\n")
	b.WriteString("          or the full path of the audio (if it is not in the data dir)\n")
	b.WriteString("          or pulse:<device>[@seconds] to record it from a PulseAudio source\n\n")
	b.WriteString("       5- recogs_repetition: is the number of recognitions in the same session (default = 1)\n\n")
	fmt.Fprintf(&b, "       6- profile_name: is one of %s (default = %s)\n", quoteList(profiles), cfg.Session.DefaultProfile)
	if cfg.Session.ProfilesFile != "" {
		fmt.Fprintf(&b, "          (you can add more in the file %s)\n", cfg.Session.ProfilesFile)
	}
	b.WriteString("\n")
	b.WriteString("       Examples of run command:\n")
	b.WriteString("         run y y builtin:lm pt-br-male-8KHz.raw\n")
	b.WriteString("         run n n builtin:lm pt-br-male-8KHz.raw 5\n")
	b.WriteString("         run y n builtin:lm pt-br-male-8KHz.raw 3 uni1\n\n")
	b.WriteString("    loglevel [level] (set loglevel, one of 0,1...7)\n\n")
	b.WriteString("    quit, exit\n\n")
	b.WriteString("NOTE: Some parameters are sent in the RECOGNIZE message header.\n")
	b.WriteString("      The sent parameters are:\n")
	writeParamTable(&b, "        ", cfg.Recognize)
	return b.String()
}

func writeParamTable(b *strings.Builder, indent string, p config.RecognitionParams) {
	rows := []string{
		"confidence_threshold = " + strconv.FormatFloat(p.ConfidenceThreshold, 'f', -1, 64),
		"n_best_list_length = " + strconv.Itoa(p.NBestListLength),
		"no_input_timeout = " + strconv.Itoa(p.NoInputTimeoutMS),
		"recognition_timeout = " + strconv.Itoa(p.RecognitionTimeoutMS),
		"start_input_timers = " + strings.ToUpper(strconv.FormatBool(p.StartInputTimers)),
	}
	rule := indent + "|" + strings.Repeat("_", tableWidth) + "|\n"
	b.WriteString(rule)
	for _, row := range rows {
		fmt.Fprintf(b, "%s|  %-*s|\n", indent, tableWidth-2, row)
	}
	b.WriteString(rule)
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = "'" + item + "'"
	}
	return strings.Join(quoted, ", ")
}
