package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	flag "github.com/spf13/pflag"
)

// Shell represents a supported shell for completion generation.
type Shell string

// Supported shells for completion.
const (
	ShellBash       Shell = "bash"
	ShellZsh        Shell = "zsh"
	ShellFish       Shell = "fish"
	ShellPowerShell Shell = "powershell"
)

// ErrUnsupportedShell is returned when an unknown shell is requested.
var ErrUnsupportedShell = errors.New("unsupported shell")

// flagType represents the completion type for a flag.
type flagType int

const (
	flagString flagType = iota
	flagBool
	flagInt
	flagEnum
	flagFile
	flagDir
)

// flagDef describes a flag for completion purposes.
type flagDef struct {
	Long     string
	Short    string
	Type     flagType
	Desc     string
	Values   []string // enum values
	FileGlob string   // comma-separated globs for file flags
}

// commandDef describes a command for completion.
type commandDef struct {
	Name        string
	Desc        string
	Flags       []flagDef
	FilePattern string // glob for file arguments; empty when none
}

// completionMeta holds completion hints that pflag does not carry.
type completionMeta struct {
	Values   []string
	FileGlob string
	IsDir    bool
}

// flagCompletionMeta maps flag names to their completion metadata.
var flagCompletionMeta = map[string]completionMeta{
	"format":     {Values: []string{"html", "md"}},
	"log-level":  {Values: []string{"debug", "info", "warn", "error"}},
	"log-format": {Values: []string{"text", "json"}},
	"sort":       {Values: []string{"uploaded_at", "-uploaded_at", "original_name", "-original_name"}},

	"config":    {FileGlob: "*.yaml,*.yml"},
	"style-map": {FileGlob: "*.txt,*.map"},

	"media-root":  {IsDir: true},
	"static-root": {IsDir: true},
}

// extractFlags reads flag definitions from fs and adds completion hints.
func extractFlags(fs *flag.FlagSet) []flagDef {
	var flags []flagDef
	fs.VisitAll(func(f *flag.Flag) {
		fd := flagDef{Long: f.Name, Short: f.Shorthand, Desc: f.Usage}
		switch f.Value.Type() {
		case "bool":
			fd.Type = flagBool
		case "int", "uint64":
			fd.Type = flagInt
		default:
			fd.Type = flagString
		}
		if meta, ok := flagCompletionMeta[f.Name]; ok {
			switch {
			case len(meta.Values) > 0:
				fd.Type = flagEnum
				fd.Values = meta.Values
			case meta.FileGlob != "":
				fd.Type = flagFile
				fd.FileGlob = meta.FileGlob
			case meta.IsDir:
				fd.Type = flagDir
			}
		}
		flags = append(flags, fd)
	})
	return flags
}

// getCommands returns the command registry for completion. Flags come from
// the same FlagSets the commands parse with.
func getCommands() []commandDef {
	w := io.Discard
	return []commandDef{
		{Name: "convert", Desc: "Convert a .docx or .md document to HTML", Flags: extractFlags(convertFlagSet(&convertFlags{}, w)), FilePattern: "*.docx,*.md,*.markdown"},
		{Name: "edit", Desc: "Save an edited HTML file over a converted document", Flags: extractFlags(editFlagSet(&commonFlags{}, w)), FilePattern: "*.html,*.htm"},
		{Name: "export", Desc: "Export a converted document", Flags: extractFlags(exportFlagSet(&exportFlags{}, w))},
		{Name: "pdf", Desc: "Print a converted document to PDF", Flags: extractFlags(pdfFlagSet(&pdfFlags{}, w))},
		{Name: "list", Desc: "List converted documents", Flags: extractFlags(listFlagSet(&listFlags{}, w))},
		{Name: "serve", Desc: "Run the web interface", Flags: extractFlags(serveFlagSet(&serveFlags{}, w))},
		{Name: "doctor", Desc: "Check the environment", Flags: extractFlags(doctorFlagSet(&doctorFlags{}, w))},
		{Name: "version", Desc: "Show version information"},
		{Name: "help", Desc: "Show help for a command"},
		{Name: "completion", Desc: "Generate shell completion script"},
	}
}

// GenerateCompletion writes the completion script for shell to w.
func GenerateCompletion(w io.Writer, shell Shell) error {
	cmds := getCommands()
	switch shell {
	case ShellBash:
		return generateBash(w, cmds)
	case ShellZsh:
		return generateZsh(w, cmds)
	case ShellFish:
		return generateFish(w, cmds)
	case ShellPowerShell:
		return generatePowerShell(w, cmds)
	default:
		return fmt.Errorf("%w: %q (supported: bash, zsh, fish, powershell)", ErrUnsupportedShell, shell)
	}
}

// runCompletion handles the completion command.
func runCompletion(args []string, env *Environment) error {
	if len(args) == 0 {
		printCompletionUsage(env.Stdout)
		return nil
	}
	if len(args) > 1 {
		return usageError(errors.New("completion takes one shell name"))
	}
	if err := GenerateCompletion(env.Stdout, Shell(args[0])); err != nil {
		return usageError(err)
	}
	return nil
}

func commandNames(cmds []commandDef) []string {
	names := make([]string, len(cmds))
	for i, c := range cmds {
		names[i] = c.Name
	}
	return names
}

func flagWords(c commandDef) []string {
	var words []string
	for _, f := range c.Flags {
		words = append(words, "--"+f.Long)
		if f.Short != "" {
			words = append(words, "-"+f.Short)
		}
	}
	sort.Strings(words)
	return words
}

// globExtensions turns "*.docx,*.md" into "docx md".
func globExtensions(glob string) []string {
	var exts []string
	for _, g := range strings.Split(glob, ",") {
		exts = append(exts, strings.TrimPrefix(strings.TrimSpace(g), "*."))
	}
	return exts
}

// ---------------------------------------------------------------------------
// bash
// ---------------------------------------------------------------------------

func generateBash(w io.Writer, cmds []commandDef) error {
	var b strings.Builder
	b.WriteString("# bash completion for docx2html\n")
	b.WriteString("_docx2html_completions() {\n")
	b.WriteString("    local cur prev cmd\n")
	b.WriteString("    cur=\"${COMP_WORDS[COMP_CWORD]}\"\n")
	b.WriteString("    prev=\"${COMP_WORDS[COMP_CWORD-1]}\"\n")
	b.WriteString("    cmd=\"${COMP_WORDS[1]}\"\n\n")
	fmt.Fprintf(&b, "    if [[ ${COMP_CWORD} -eq 1 ]]; then\n        COMPREPLY=($(compgen -W \"%s\" -- \"${cur}\"))\n        return\n    fi\n\n",
		strings.Join(commandNames(cmds), " "))

	b.WriteString("    case \"${prev}\" in\n")
	for _, f := range uniqueValueFlags(cmds) {
		fmt.Fprintf(&b, "        %s)\n", flagPattern(f))
		switch f.Type {
		case flagEnum:
			fmt.Fprintf(&b, "            COMPREPLY=($(compgen -W \"%s\" -- \"${cur}\"))\n", strings.Join(f.Values, " "))
		case flagDir:
			b.WriteString("            COMPREPLY=($(compgen -d -- \"${cur}\"))\n")
		case flagFile:
			fmt.Fprintf(&b, "            COMPREPLY=($(compgen -f -X '!*.@(%s)' -- \"${cur}\"))\n", strings.Join(globExtensions(f.FileGlob), "|"))
		}
		b.WriteString("            return\n            ;;\n")
	}
	b.WriteString("    esac\n\n")

	b.WriteString("    case \"${cmd}\" in\n")
	for _, c := range cmds {
		if len(c.Flags) == 0 && c.FilePattern == "" {
			continue
		}
		fmt.Fprintf(&b, "        %s)\n", c.Name)
		fmt.Fprintf(&b, "            if [[ \"${cur}\" == -* ]]; then\n                COMPREPLY=($(compgen -W \"%s\" -- \"${cur}\"))\n", strings.Join(flagWords(c), " "))
		if c.FilePattern != "" {
			fmt.Fprintf(&b, "            else\n                COMPREPLY=($(compgen -f -X '!*.@(%s)' -- \"${cur}\"))\n", strings.Join(globExtensions(c.FilePattern), "|"))
		}
		b.WriteString("            fi\n            ;;\n")
	}
	b.WriteString("        help)\n")
	fmt.Fprintf(&b, "            COMPREPLY=($(compgen -W \"%s\" -- \"${cur}\"))\n            ;;\n", strings.Join(commandNames(cmds), " "))
	b.WriteString("        completion)\n")
	b.WriteString("            COMPREPLY=($(compgen -W \"bash zsh fish powershell\" -- \"${cur}\"))\n            ;;\n")
	b.WriteString("    esac\n}\n\n")
	b.WriteString("shopt -s extglob\n")
	b.WriteString("complete -F _docx2html_completions docx2html\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// uniqueValueFlags returns the flags taking completable values, once per
// name, in a stable order.
func uniqueValueFlags(cmds []commandDef) []flagDef {
	seen := make(map[string]bool)
	var out []flagDef
	for _, c := range cmds {
		for _, f := range c.Flags {
			if f.Type != flagEnum && f.Type != flagDir && f.Type != flagFile {
				continue
			}
			if seen[f.Long] {
				continue
			}
			seen[f.Long] = true
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Long < out[j].Long })
	return out
}

func flagPattern(f flagDef) string {
	if f.Short != "" {
		return "--" + f.Long + "|-" + f.Short
	}
	return "--" + f.Long
}

// ---------------------------------------------------------------------------
// zsh
// ---------------------------------------------------------------------------

func generateZsh(w io.Writer, cmds []commandDef) error {
	var b strings.Builder
	b.WriteString("#compdef docx2html\n\n")
	b.WriteString("_docx2html() {\n")
	b.WriteString("    local -a commands\n    commands=(\n")
	for _, c := range cmds {
		fmt.Fprintf(&b, "        '%s:%s'\n", c.Name, zshEscape(c.Desc))
	}
	b.WriteString("    )\n\n")
	b.WriteString("    if (( CURRENT == 2 )); then\n        _describe 'command' commands\n        return\n    fi\n\n")
	b.WriteString("    case \"${words[2]}\" in\n")
	for _, c := range cmds {
		if len(c.Flags) == 0 && c.FilePattern == "" {
			continue
		}
		fmt.Fprintf(&b, "        %s)\n            _arguments \\\n", c.Name)
		for _, f := range c.Flags {
			fmt.Fprintf(&b, "                '%s' \\\n", zshFlagSpec(f))
		}
		if c.FilePattern != "" {
			fmt.Fprintf(&b, "                '*:file:_files -g \"%s\"'\n", zshGlob(c.FilePattern))
		} else {
			b.WriteString("                '*:job id:'\n")
		}
		b.WriteString("            ;;\n")
	}
	b.WriteString("        completion)\n            _values 'shell' bash zsh fish powershell\n            ;;\n")
	b.WriteString("    esac\n}\n\n")
	b.WriteString("compdef _docx2html docx2html\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func zshFlagSpec(f flagDef) string {
	name := "--" + f.Long
	if f.Short != "" {
		name = "(-" + f.Short + " --" + f.Long + ")'{-" + f.Short + ",--" + f.Long + "}'"
	}
	arg := name + "[" + zshEscape(f.Desc) + "]"
	switch f.Type {
	case flagBool:
		return arg
	case flagEnum:
		return arg + ":value:(" + strings.Join(f.Values, " ") + ")"
	case flagDir:
		return arg + ":directory:_files -/"
	case flagFile:
		return arg + ":file:_files -g \"" + zshGlob(f.FileGlob) + "\""
	default:
		return arg + ":value:"
	}
}

// zshGlob turns "*.docx,*.md" into "*.(docx|md)".
func zshGlob(glob string) string {
	return "*.(" + strings.Join(globExtensions(glob), "|") + ")"
}

func zshEscape(s string) string {
	r := strings.NewReplacer("'", "'\\''", "[", "\\[", "]", "\\]", ":", "\\:")
	return r.Replace(s)
}

// ---------------------------------------------------------------------------
// fish
// ---------------------------------------------------------------------------

func generateFish(w io.Writer, cmds []commandDef) error {
	var b strings.Builder
	b.WriteString("# fish completion for docx2html\n\n")
	b.WriteString("function __fish_docx2html_needs_command\n")
	b.WriteString("    set -l cmd (commandline -opc)\n")
	b.WriteString("    test (count $cmd) -eq 1\n")
	b.WriteString("end\n\n")
	b.WriteString("function __fish_docx2html_using_command\n")
	b.WriteString("    set -l cmd (commandline -opc)\n")
	b.WriteString("    test (count $cmd) -gt 1; and test $cmd[2] = $argv[1]\n")
	b.WriteString("end\n\n")
	b.WriteString("complete -c docx2html -f\n")

	for _, c := range cmds {
		fmt.Fprintf(&b, "complete -c docx2html -n __fish_docx2html_needs_command -a %s -d '%s'\n", c.Name, fishEscape(c.Desc))
	}
	b.WriteString("\n")

	for _, c := range cmds {
		cond := "'__fish_docx2html_using_command " + c.Name + "'"
		for _, f := range c.Flags {
			line := "complete -c docx2html -n " + cond + " -l " + f.Long
			if f.Short != "" {
				line += " -s " + f.Short
			}
			switch f.Type {
			case flagEnum:
				line += " -x -a '" + strings.Join(f.Values, " ") + "'"
			case flagDir:
				line += " -x -a '(__fish_complete_directories)'"
			case flagFile:
				line += " -r -F"
			case flagString, flagInt:
				line += " -x"
			}
			line += " -d '" + fishEscape(f.Desc) + "'"
			b.WriteString(line + "\n")
		}
		if c.FilePattern != "" {
			fmt.Fprintf(&b, "complete -c docx2html -n %s -F\n", cond)
		}
	}
	b.WriteString("complete -c docx2html -n '__fish_docx2html_using_command completion' -x -a 'bash zsh fish powershell'\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func fishEscape(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}

// ---------------------------------------------------------------------------
// powershell
// ---------------------------------------------------------------------------

func generatePowerShell(w io.Writer, cmds []commandDef) error {
	var b strings.Builder
	b.WriteString("# PowerShell completion for docx2html\n")
	b.WriteString("Register-ArgumentCompleter -Native -CommandName docx2html -ScriptBlock {\n")
	b.WriteString("    param($wordToComplete, $commandAst, $cursorPosition)\n\n")
	b.WriteString("    $commands = @{\n")
	for _, c := range cmds {
		fmt.Fprintf(&b, "        '%s' = @(%s)\n", c.Name, psList(flagWords(c)))
	}
	b.WriteString("    }\n\n")
	b.WriteString("    $elements = $commandAst.CommandElements | ForEach-Object { $_.ToString() }\n")
	b.WriteString("    if ($elements.Count -le 1 -or ($elements.Count -eq 2 -and $wordToComplete)) {\n")
	b.WriteString("        $commands.Keys | Where-Object { $_ -like \"$wordToComplete*\" } | Sort-Object | ForEach-Object {\n")
	b.WriteString("            [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterValue', $_)\n")
	b.WriteString("        }\n        return\n    }\n\n")
	b.WriteString("    $flags = $commands[$elements[1]]\n")
	b.WriteString("    if ($flags -and $wordToComplete -like '-*') {\n")
	b.WriteString("        $flags | Where-Object { $_ -like \"$wordToComplete*\" } | ForEach-Object {\n")
	b.WriteString("            [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterName', $_)\n")
	b.WriteString("        }\n    }\n}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func psList(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = "'" + w + "'"
	}
	return strings.Join(quoted, ", ")
}

// printCompletionUsage prints help for the completion command.
func printCompletionUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docx2html completion <shell>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Generate shell completion script for the specified shell.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Supported shells:")
	fmt.Fprintln(w, "  bash        Bash completion script")
	fmt.Fprintln(w, "  zsh         Zsh completion script")
	fmt.Fprintln(w, "  fish        Fish completion script")
	fmt.Fprintln(w, "  powershell  PowerShell completion script")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Installation:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Bash:")
	fmt.Fprintln(w, "    # Add to ~/.bashrc:")
	fmt.Fprintln(w, "    eval \"$(docx2html completion bash)\"")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Zsh:")
	fmt.Fprintln(w, "    # Add to ~/.zshrc (before compinit):")
	fmt.Fprintln(w, "    eval \"$(docx2html completion zsh)\"")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Fish:")
	fmt.Fprintln(w, "    docx2html completion fish > ~/.config/fish/completions/docx2html.fish")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  PowerShell:")
	fmt.Fprintln(w, "    # Add to $PROFILE:")
	fmt.Fprintln(w, "    docx2html completion powershell | Out-String | Invoke-Expression")
}
