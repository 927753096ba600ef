package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// SeatRow is one row of the room roster.
type SeatRow struct {
	Slot         int
	Name         string
	Role         string
	Host         bool
	HandRaised   bool
	LinkState    string
	StudyMinutes int
}

// RosterTable renders the 4-slot seat table.
type RosterTable struct {
	rows []SeatRow
}

func NewRosterTable(rows []SeatRow) *RosterTable {
	return &RosterTable{rows: rows}
}

// View renders the table as a string. Empty slots render as muted dashes
// so the fixed seat positions stay visible.
func (t *RosterTable) View() string {
	headers := []string{"Seat", "Name", "Role", "Hand", "Link", "Study"}

	var rows [][]string
	for _, r := range t.rows {
		if r.Name == "" {
			rows = append(rows, []string{fmt.Sprintf("%d", r.Slot), "—", "", "", "", ""})
			continue
		}
		name := r.Name
		if r.Host {
			name = IconHost + " " + name
		}
		hand := ""
		if r.HandRaised {
			hand = IconHand
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", r.Slot),
			name,
			r.Role,
			hand,
			r.LinkState,
			fmt.Sprintf("%dm", r.StudyMinutes),
		})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}

// Render outputs the table directly to stdout.
func (t *RosterTable) Render() {
	fmt.Println(t.View())
}

// RoomBanner describes a joined room for display.
type RoomBanner struct {
	RoomID string
	IsHost bool
}

func (b *RoomBanner) View() string {
	role := "participant"
	if b.IsHost {
		role = "host"
	}
	content := fmt.Sprintf("%s Joined room\n\n%s Room ID:  %s\n%s You are:  %s",
		IconSuccess,
		IconRoom, BoldStyle.Foreground(Primary).Render(b.RoomID),
		IconPeer, role,
	)
	return BoxStyle.Render(content)
}

// ChatLine renders one private-chat message.
func ChatLine(name, text string) string {
	return ChatStyle.Render(fmt.Sprintf("%s %s: %s", IconChat, BoldStyle.Render(name), text))
}
