package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/videodesk-app/videodesk/internal/config"
	"github.com/videodesk-app/videodesk/internal/identity"
	"github.com/videodesk-app/videodesk/internal/media"
	"github.com/videodesk-app/videodesk/internal/mesh"
	"github.com/videodesk-app/videodesk/internal/protocol"
	"github.com/videodesk-app/videodesk/internal/signaling"
	"github.com/videodesk-app/videodesk/internal/ui"
)

var (
	joinOpts config.Options
	joinName string
	joinRole string
)

var joinCmd = &cobra.Command{
	Use:   "join [room]",
	Short: "Join a study room",
	Long:  `Connects to the coordinator and takes a seat. With no room argument the coordinator picks a room with a free seat, creating one when everything is full.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		room := ""
		if len(args) > 0 {
			room = args[0]
		}
		return runJoin(room)
	},
}

func init() {
	joinCmd.Flags().StringVar(&joinOpts.ServerURL, "server", "", "coordinator websocket URL")
	joinCmd.Flags().StringVar(&joinOpts.STUNServer, "stun", "", "STUN server URL")
	joinCmd.Flags().StringVar(&joinOpts.TURNServer, "turn", "", "TURN server URL")
	joinCmd.Flags().StringVar(&joinOpts.TURNUser, "turn-user", "", "TURN username")
	joinCmd.Flags().StringVar(&joinOpts.TURNPass, "turn-pass", "", "TURN password")
	joinCmd.Flags().StringVar(&joinName, "name", "", "display name (default: hostname)")
	joinCmd.Flags().StringVar(&joinRole, "role", protocol.RoleStudent, "role: student or host")
	rootCmd.AddCommand(joinCmd)
}

func runJoin(room string) error {
	cfg, err := config.Load(joinOpts)
	if err != nil {
		return err
	}

	name := joinName
	if name == "" {
		if host, err := os.Hostname(); err == nil {
			name = host
		} else {
			name = "guest"
		}
	}

	stableID, err := identity.StableID()
	if err != nil {
		return err
	}

	stopSpinner := ui.RunConnectionSpinner("Connecting to coordinator...")
	client := signaling.NewClient(cfg.ServerURL)
	if err := client.Connect(); err != nil {
		stopSpinner()
		return err
	}
	stopSpinner()

	sess := mesh.NewSession(client, mesh.NewPionFactory(cfg), media.StaticSource{}, name, joinRole, stableID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sess.Run(ctx)

	if err := sess.Join(room); err != nil {
		return err
	}

	view := newDeskView(sess, joinRole)
	go view.consume()

	return readCommands(sess, view)
}

// readCommands drives the session from stdin until quit or EOF.
func readCommands(sess *mesh.Session, view *deskView) error {
	fmt.Println(ui.MutedStyle.Render("commands: hand | private <seat> | end | chat <text> | roster | quit"))

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		cmdWord, rest, _ := strings.Cut(line, " ")

		switch cmdWord {
		case "":
		case "hand":
			sess.ToggleHand()
		case "private":
			id := view.seatConnID(strings.TrimSpace(rest))
			if id == "" {
				ui.PrintWarning("no such seat")
				continue
			}
			sess.StartPrivate(id)
		case "end":
			sess.EndPrivate()
		case "chat":
			if rest != "" {
				sess.SendChat(rest)
			}
		case "roster":
			view.renderRoster()
		case "resync":
			sess.Resync()
		case "quit", "exit":
			return nil
		default:
			ui.PrintWarning("unknown command: " + cmdWord)
		}
	}
	return scanner.Err()
}

// deskView accumulates session events into a printable room view.
type deskView struct {
	sess *mesh.Session
	role string

	selfID string
	hostID string
	seats  []*protocol.Seat
	links  map[string]string
	hands  map[string]bool
}

func newDeskView(sess *mesh.Session, role string) *deskView {
	return &deskView{
		sess:  sess,
		role:  role,
		links: make(map[string]string),
		hands: make(map[string]bool),
	}
}

func (v *deskView) consume() {
	for ev := range v.sess.Events() {
		switch e := ev.(type) {
		case mesh.RoomJoined:
			v.selfID = e.SelfID
			v.seats = e.Seats
			if e.IsHost {
				v.hostID = e.SelfID
			}
			banner := ui.RoomBanner{RoomID: e.RoomID, IsHost: e.IsHost}
			fmt.Println(banner.View())
			v.renderRoster()

		case mesh.SeatsUpdated:
			v.seats = e.Seats
			v.renderRoster()

		case mesh.ParticipantJoined:
			ui.PrintInfof("%s joined (%s)", e.Name, e.Role)
			v.sess.Resync()

		case mesh.ParticipantLeft:
			ui.PrintInfof("%s left", e.Name)
			delete(v.links, e.ID)
			v.sess.Resync()

		case mesh.HostChanged:
			v.hostID = e.ID
			ui.PrintInfof("%s is now the host", e.Name)

		case mesh.PeerStateChanged:
			v.links[e.PeerID] = e.State.String()

		case mesh.RosterUpdated:
			v.hands = make(map[string]bool, len(e.Roster))
			for _, entry := range e.Roster {
				v.hands[entry.ID] = entry.Raised
			}
			v.renderRoster()

		case mesh.PrivateStarted:
			ui.PrintInfof("%s private session started", ui.IconPrivate)

		case mesh.PrivateEnded:
			ui.PrintInfof("back in room %s", e.MainRoomID)

		case mesh.ChatReceived:
			if e.Text != "" {
				fmt.Println(ui.ChatLine(e.Name, e.Text))
			} else {
				fmt.Println(ui.ChatLine(e.Name, "(image)"))
			}

		case mesh.CoordinatorError:
			ui.PrintError(e.Text)

		case mesh.Disconnected:
			ui.PrintError("connection to coordinator lost")
			return
		}
	}
}

// seatConnID maps a 1-based seat number from the prompt to a connection
// id, skipping the local seat.
func (v *deskView) seatConnID(arg string) string {
	for i, seat := range v.seats {
		if seat == nil || seat.ID == v.selfID {
			continue
		}
		if fmt.Sprintf("%d", i+1) == arg {
			return seat.ID
		}
	}
	return ""
}

func (v *deskView) renderRoster() {
	elevated := v.role == protocol.RoleHost
	ui.NewRosterTable(rosterRows(v.seats, v.hands, v.links, v.selfID, elevated)).Render()
}

// rosterRows builds the seat table. The aggregated hand flags are a
// host-only view; everyone else sees only their own hand.
func rosterRows(seats []*protocol.Seat, hands map[string]bool, links map[string]string, selfID string, elevated bool) []ui.SeatRow {
	rows := make([]ui.SeatRow, 0, len(seats))
	for i, seat := range seats {
		row := ui.SeatRow{Slot: i + 1}
		if seat != nil {
			row.Name = seat.Name
			row.Role = seat.Role
			row.Host = seat.IsHost
			if elevated || seat.ID == selfID {
				row.HandRaised = hands[seat.ID]
			}
			row.StudyMinutes = seat.TotalStudyMinutes
			if seat.ID == selfID {
				row.LinkState = "you"
			} else {
				row.LinkState = links[seat.ID]
			}
		}
		rows = append(rows, row)
	}
	return rows
}
