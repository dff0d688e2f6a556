package console

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/koscakluka/ema-voiceagent/core/scenarios"
	"github.com/mattn/go-isatty"
)

// ErrCancelled is returned when the menu is left without a choice.
var ErrCancelled = errors.New("scenario selection cancelled")

type menuItem struct {
	key      string
	scenario scenarios.Scenario
}

func (i menuItem) Title() string       { return fmt.Sprintf("%s. %s", i.key, i.scenario.Title()) }
func (i menuItem) Description() string { return i.scenario.Subtitle }
func (i menuItem) FilterValue() string { return i.scenario.Title() }

type menuModel struct {
	list      list.Model
	chosen    int
	cancelled bool
}

func newMenuModel(set []scenarios.Scenario) menuModel {
	keys := scenarios.Keys(set)
	items := make([]list.Item, len(set))
	for i, s := range set {
		items[i] = menuItem{key: keys[i], scenario: s}
	}

	l := list.New(items, list.NewDefaultDelegate(), defaultWidth, 4*len(set)+6)
	l.Title = "Select a demo scenario:"
	l.SetFilteringEnabled(false)
	l.SetShowStatusBar(false)

	return menuModel{list: l, chosen: -1}
}

func (m menuModel) Init() tea.Cmd { return nil }

func (m menuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch key := msg.String(); key {
		case "ctrl+c", "esc", "q":
			m.cancelled = true
			return m, tea.Quit
		case "enter":
			m.chosen = m.list.Index()
			return m, tea.Quit
		default:
			if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= len(m.list.Items()) {
				m.chosen = n - 1
				return m, tea.Quit
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m menuModel) View() string {
	if m.chosen >= 0 || m.cancelled {
		return ""
	}
	return "\n" + m.list.View()
}

// SelectScenario lets the user pick one scenario of set. On a terminal it
// shows a menu; otherwise it reads a number from in. The fallback reads
// byte by byte so in can be handed to another reader afterwards.
func SelectScenario(in io.Reader, out io.Writer, set []scenarios.Scenario) (scenarios.Scenario, error) {
	if len(set) == 0 {
		return scenarios.Scenario{}, fmt.Errorf("no scenarios to select from")
	}

	inFile, inOK := in.(*os.File)
	outFile, outOK := out.(*os.File)
	if inOK && outOK && isatty.IsTerminal(inFile.Fd()) && isatty.IsTerminal(outFile.Fd()) {
		return selectWithMenu(inFile, outFile, set)
	}
	return selectWithPrompt(in, out, set)
}

func selectWithMenu(in, out *os.File, set []scenarios.Scenario) (scenarios.Scenario, error) {
	program := tea.NewProgram(newMenuModel(set), tea.WithInput(in), tea.WithOutput(out))
	final, err := program.Run()
	if err != nil {
		return scenarios.Scenario{}, fmt.Errorf("failed to run scenario menu: %w", err)
	}

	m := final.(menuModel)
	if m.cancelled || m.chosen < 0 {
		return scenarios.Scenario{}, ErrCancelled
	}
	return set[m.chosen].Clone(), nil
}

func selectWithPrompt(in io.Reader, out io.Writer, set []scenarios.Scenario) (scenarios.Scenario, error) {
	keys := scenarios.Keys(set)
	fmt.Fprintln(out, "  Select a demo scenario:")
	fmt.Fprintln(out)
	for i, s := range set {
		fmt.Fprintf(out, "    [%s] %s\n", keys[i], s.Title())
		if s.Subtitle != "" {
			fmt.Fprintf(out, "        %s\n", s.Subtitle)
		}
	}
	fmt.Fprintln(out)

	for {
		fmt.Fprintf(out, "  Enter scenario number (1-%d): ", len(set))
		line, err := readLine(in)
		if line = strings.TrimSpace(line); line != "" {
			if s, findErr := scenarios.Find(set, line); findErr == nil {
				return s, nil
			}
			fmt.Fprintf(out, "  Unknown scenario %q.\n", line)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return scenarios.Scenario{}, ErrCancelled
			}
			return scenarios.Scenario{}, fmt.Errorf("failed to read selection: %w", err)
		}
	}
}

func readLine(r io.Reader) (string, error) {
	var b strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if buf[0] == '\n' {
				return b.String(), nil
			}
			b.WriteByte(buf[0])
		}
		if err != nil {
			return b.String(), err
		}
	}
}
