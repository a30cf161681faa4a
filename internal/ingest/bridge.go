// Package ingest реализует мост MQTT -> хранилище для показаний датчиков комнат
package ingest

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"smartroom-analytics/internal/models"
)

const (
	// SourceMQTT метка источника для метрик
	SourceMQTT = "mqtt"

	storeTimeout      = 10 * time.Second
	disconnectQuiesce = 250
)

// Ingester сохраняет принятые записи (реализация: service.Service)
type Ingester interface {
	Ingest(ctx context.Context, records []models.Record, source string) (models.IngestResult, error)
}

// Config параметры подключения к брокеру
type Config struct {
	Broker   string
	Topic    string
	Username string
	Password string
	CAFile   string
	ClientID string
	QoS      byte
}

// Bridge подписывается на топик и пишет показания в хранилище
type Bridge struct {
	cfg      Config
	ingester Ingester
	client   mqtt.Client
	now      func() time.Time
}

// NewBridge создает мост; подключение выполняется в Start
func NewBridge(cfg Config, ingester Ingester) *Bridge {
	if cfg.ClientID == "" {
		cfg.ClientID = "smartroom-bridge-" + uuid.New().String()
	}
	return &Bridge{
		cfg:      cfg,
		ingester: ingester,
		now:      time.Now,
	}
}

// ClientOptions собирает параметры клиента paho
func (b *Bridge) ClientOptions() (*mqtt.ClientOptions, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(b.cfg.Broker).
		SetClientID(b.cfg.ClientID).
		SetAutoReconnect(true).
		SetKeepAlive(60 * time.Second).
		SetOnConnectHandler(b.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Printf("MQTT connection lost: %v", err)
		})

	if b.cfg.Username != "" {
		opts.SetUsername(b.cfg.Username)
		opts.SetPassword(b.cfg.Password)
	}

	if b.cfg.CAFile != "" {
		tlsCfg, err := loadTLSConfig(b.cfg.CAFile)
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	return opts, nil
}

func loadTLSConfig(caFile string) (*tls.Config, error) {
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", caFile)
	}
	return &tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
	}, nil
}

// Start подключается к брокеру и обрабатывает сообщения до отмены ctx
func (b *Bridge) Start(ctx context.Context) error {
	opts, err := b.ClientOptions()
	if err != nil {
		return err
	}

	b.client = mqtt.NewClient(opts)
	if token := b.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker %s: %w", b.cfg.Broker, token.Error())
	}

	<-ctx.Done()
	log.Println("Disconnecting from MQTT broker...")
	b.client.Disconnect(disconnectQuiesce)
	return nil
}

// onConnect (пере)подписывается на топик при каждом подключении
func (b *Bridge) onConnect(client mqtt.Client) {
	log.Printf("Connected to MQTT broker %s", b.cfg.Broker)
	token := client.Subscribe(b.cfg.Topic, b.cfg.QoS, b.HandleMessage)
	if token.Wait() && token.Error() != nil {
		log.Printf("Failed to subscribe to %s: %v", b.cfg.Topic, token.Error())
		return
	}
	log.Printf("Subscribed to %s", b.cfg.Topic)
}

// HandleMessage - обработчик сообщений paho
func (b *Bridge) HandleMessage(_ mqtt.Client, msg mqtt.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := b.Process(ctx, msg.Topic(), msg.Payload()); err != nil {
		log.Printf("Error processing message on %s: %v", msg.Topic(), err)
		return
	}
}

// Process разбирает JSON показание, ставит метку времени приема и сохраняет его
func (b *Bridge) Process(ctx context.Context, topic string, payload []byte) error {
	var rec models.Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if rec == nil {
		return fmt.Errorf("invalid payload: not a JSON object")
	}

	rec[models.KeyTimestamp] = b.now().UTC().Format(time.RFC3339Nano)
	if models.DeviceID(rec) == "" {
		if id := DeviceFromTopic(topic); id != "" {
			rec[models.KeyDeviceID] = id
		}
	}

	if _, err := b.ingester.Ingest(ctx, []models.Record{rec}, SourceMQTT); err != nil {
		return err
	}
	log.Printf("Saved %s record for %s", kind(rec), models.DeviceID(rec))
	return nil
}

// DeviceFromTopic берет идентификатор комнаты из второго сегмента топика
// (building/<room>/...)
func DeviceFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

func kind(r models.Record) string {
	if models.IsEvent(r) {
		return "event"
	}
	return "telemetry"
}
