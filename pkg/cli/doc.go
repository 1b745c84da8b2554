/*
Package cli provides command-line helpers shared by the hubflow commands.

Output Formatting:

Command results are printed as text, JSON or YAML:

	formatter, err := cli.NewFormatter(cli.OutputFormat(flags.format))
	if err != nil {
		return err
	}
	return formatter.FormatTo(cmd.OutOrStdout(), result)

A value implementing Texter controls its own text rendering; anything else
is printed with %v.

Signal Handling:

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()
	// ctx is cancelled on SIGINT or SIGTERM

Errors:

ConfigError and CommandError carry an exit code; ExitCode maps any error
returned by a command to the process exit status.
*/
package cli
