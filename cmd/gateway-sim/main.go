// Command gateway-sim emulates a BLE gateway publishing beacon sightings
// over MQTT. It reports the built-in roster tags with jittered signal
// strength, plus the occasional unregistered MAC.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"wardtrack/server/internal/model"
	"wardtrack/server/internal/registry"
)

func main() {
	broker := flag.String("broker", "tcp://localhost:1883", "MQTT broker address")
	gatewayID := flag.String("gateway-id", "", "gateway identifier (random when empty)")
	gatewayIP := flag.String("gateway-ip", "", "gateway IP reported in packets (server falls back to the TCP peer when empty)")
	interval := flag.Duration("interval", 5*time.Second, "delay between reports")
	baseRSSI := flag.Int("base-rssi", -60, "center of the simulated RSSI range")
	rssiJitter := flag.Int("rssi-jitter", 15, "max dBm deviation from base-rssi")
	unknownRatio := flag.Float64("unknown-ratio", 0.1, "fraction of reports using an unregistered MAC")
	batchSize := flag.Int("batch", 0, "publish batches of this size instead of single sightings")
	flag.Parse()

	if *gatewayID == "" {
		*gatewayID = "sim-" + uuid.NewString()[:8]
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	roster := registry.Default().All()

	opts := mqtt.NewClientOptions().
		AddBroker(*broker).
		SetClientID(*gatewayID).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		logger.Error("mqtt connect failed", "broker", *broker, "error", token.Error())
		os.Exit(1)
	}
	defer client.Disconnect(250)

	logger.Info("gateway simulator started",
		"gateway", *gatewayID,
		"broker", *broker,
		"interval", *interval,
		"batch", *batchSize,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	topic := fmt.Sprintf("gateways/%s/sightings", *gatewayID)
	batchTopic := topic + "/batch"

	for {
		select {
		case <-sigCh:
			logger.Info("shutting down")
			return
		case <-ticker.C:
			var (
				payload []byte
				target  string
				err     error
			)

			if *batchSize > 1 {
				packets := make([]model.RawPacket, 0, *batchSize)
				for i := 0; i < *batchSize; i++ {
					packets = append(packets, randomPacket(rng, roster, *baseRSSI, *rssiJitter, *unknownRatio, *gatewayIP))
				}
				payload, err = json.Marshal(packets)
				target = batchTopic
			} else {
				payload, err = json.Marshal(randomPacket(rng, roster, *baseRSSI, *rssiJitter, *unknownRatio, *gatewayIP))
				target = topic
			}
			if err != nil {
				logger.Error("marshal packet", "error", err)
				continue
			}

			token := client.Publish(target, 1, false, payload)
			if token.Wait() && token.Error() != nil {
				logger.Warn("publish failed", "topic", target, "error", token.Error())
				continue
			}
			logger.Info("published", "topic", target, "bytes", len(payload))
		}
	}
}

func randomPacket(rng *rand.Rand, roster []model.Tag, baseRSSI, jitter int, unknownRatio float64, gatewayIP string) model.RawPacket {
	mac := randomUnknownMAC(rng)
	if rng.Float64() >= unknownRatio && len(roster) > 0 {
		mac = roster[rng.Intn(len(roster))].MAC
	}

	rssi := baseRSSI
	if jitter > 0 {
		rssi += rng.Intn(2*jitter+1) - jitter
	}

	return model.RawPacket{
		MAC:       mac,
		RSSI:      rssi,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		GatewayIP: gatewayIP,
	}
}

func randomUnknownMAC(rng *rand.Rand) string {
	return fmt.Sprintf("DE:AD:BE:EF:%02X:%02X", rng.Intn(256), rng.Intn(256))
}
