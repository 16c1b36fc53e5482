package homeworks_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pior/homeworks"
	"github.com/pior/homeworks/protocol"
)

// Example monitoring a controller behind a serial-to-network bridge
func ExampleClient() {
	client, err := homeworks.NewClient(homeworks.Config{
		Address:     "tcp://192.168.1.50:4003",
		Credentials: "lutron,integration",
		Logger:      slog.New(slog.NewTextHandler(os.Stderr, nil)),
	})
	if err != nil {
		panic(err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	go client.Run(ctx)

	for ev := range client.Events(ctx) {
		switch ev.Kind {
		case protocol.KindButtonPressed:
			fmt.Printf("keypad %s button %d pressed\n", ev.Address, ev.Button)
		case protocol.KindLightLevelChanged:
			fmt.Printf("dimmer %s at %d%%\n", ev.Address, ev.Level)
		}
	}
}

// Example fading a dimmer once the connection is ready
func ExampleClient_FadeDim() {
	client, err := homeworks.NewClient(homeworks.Config{
		Address: "telnet://homeworks.local",
	})
	if err != nil {
		panic(err)
	}
	defer client.Close()

	ctx := context.Background()
	go client.Run(ctx)

	if err := client.WaitReady(ctx); err != nil {
		panic(err)
	}

	// Fade to 40% over 3 seconds
	if err := client.FadeDim(ctx, 40, 3, 0, "[01:01:00:02:04]"); err != nil {
		fmt.Printf("fade failed: %v\n", err)
	}
}

// Example throttling dials to a controller that keeps refusing connections
func ExampleNewCircuitBreakerSettings() {
	settings := homeworks.NewCircuitBreakerSettings("serial:///dev/ttyUSB0", 5, 30*time.Second)

	client, err := homeworks.NewClient(homeworks.Config{
		Address:                "serial:///dev/ttyUSB0?baud=9600",
		CircuitBreakerSettings: &settings,
	})
	if err != nil {
		panic(err)
	}
	defer client.Close()

	stats := client.Stats()
	fmt.Printf("Dial errors: %d\n", stats.DialErrors)
}
