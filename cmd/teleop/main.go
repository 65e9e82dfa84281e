// Command teleop is an operator console for driving the rover from a
// terminal. It connects to the rover's command websocket and turns simple
// lines like "forward 120" or "stop" into wrapped tank commands, printing
// each acknowledgement.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rovercam/go-rover/pkg/rover"
)

func main() {
	addr := flag.String("addr", "localhost:8080", "Rover host:port")
	flag.Parse()

	url := fmt.Sprintf("ws://%s/ws/command", *addr)
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to %s: %v\n", url, err)
		os.Exit(1)
	}
	defer conn.Close()

	fmt.Printf("Connected to %s\n", url)
	fmt.Println("Commands: forward|reverse|left|right <speed>, stop, quit")

	// Print acks/nacks as they arrive.
	go func() {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				fmt.Fprintf(os.Stderr, "connection closed: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("<- %s\n", msg)
		}
	}()

	in := bufio.NewScanner(os.Stdin)
	for fmt.Print("> "); in.Scan(); fmt.Print("> ") {
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return
		}

		text, err := buildCommand(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
			fmt.Fprintf(os.Stderr, "write failed: %v\n", err)
			return
		}
	}
}

// buildCommand turns an operator line into a wrapped tank command.
func buildCommand(line string) (string, error) {
	fields := strings.Fields(line)
	direction := fields[0]

	if direction == "stop" {
		zero := rover.TankCommand{}
		return rover.FormatTankCommand(zero), nil
	}

	if len(fields) != 2 {
		return "", fmt.Errorf("usage: %s <speed>", direction)
	}
	speed, err := strconv.ParseFloat(fields[1], 64)
	if err != nil || speed < 0 || speed > rover.MaxSpeedCommand {
		return "", fmt.Errorf("speed must be 0..%d", rover.MaxSpeedCommand)
	}

	var tank rover.TankCommand
	switch direction {
	case "forward":
		tank.Left = rover.WheelCommand{Forward: true, Value: speed}
		tank.Right = rover.WheelCommand{Forward: true, Value: speed}
	case "reverse":
		tank.Left = rover.WheelCommand{Forward: false, Value: speed}
		tank.Right = rover.WheelCommand{Forward: false, Value: speed}
	case "left":
		tank.Left = rover.WheelCommand{Forward: false, Value: speed}
		tank.Right = rover.WheelCommand{Forward: true, Value: speed}
	case "right":
		tank.Left = rover.WheelCommand{Forward: true, Value: speed}
		tank.Right = rover.WheelCommand{Forward: false, Value: speed}
	default:
		return "", fmt.Errorf("unknown direction %q", direction)
	}
	return rover.FormatTankCommand(tank), nil
}
