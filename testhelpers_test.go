//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Lokeshwarrior12/FineDine/internal/application"
	"github.com/Lokeshwarrior12/FineDine/internal/common/database"
	"github.com/Lokeshwarrior12/FineDine/internal/common/events"
	"github.com/Lokeshwarrior12/FineDine/internal/common/kafka"
	"github.com/Lokeshwarrior12/FineDine/internal/domain/coupon"
	couponEvents "github.com/Lokeshwarrior12/FineDine/internal/events"
	"github.com/Lokeshwarrior12/FineDine/internal/idempotency"
	"github.com/Lokeshwarrior12/FineDine/internal/repository"
	"github.com/Lokeshwarrior12/FineDine/internal/saga"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Cleanup      func()
}

// couponStack holds wired-up coupon service components.
type couponStack struct {
	Claims          *application.ClaimService
	Redemptions     *application.RedemptionService
	Offers          *application.OfferService
	Loyalty         *application.LoyaltyService
	Consumer        *couponEvents.OfferCatalogConsumer
	CleanupProducer func()
}

// setupContainers starts PostgreSQL and Kafka testcontainers, applies the
// SQL migrations and returns a connected GORM DB.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_coupons",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dbCfg := database.Config{
		Driver:   database.DriverPostgres,
		Host:     pgHost,
		Port:     pgPort.Port(),
		User:     "test",
		Password: "test",
		DBName:   "test_coupons",
		SSLMode:  "disable",
	}

	// Poll until the database accepts connections.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = database.Connect(dbCfg, logger)
		return err == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, database.RunMigrations(dbCfg.DatabaseURL(), "migrations", logger))

	// Start Kafka container using confluent-local (supports KRaft natively).
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, kafkaBrokers, events.TopicCatalogOffers, events.TopicCouponEvents)

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}

	return &testInfra{
		DB:           db,
		KafkaBrokers: kafkaBrokers,
		Cleanup:      cleanup,
	}
}

// setupCouponStack wires up the full coupon service stack.
func setupCouponStack(t *testing.T, db *gorm.DB, brokers []string) *couponStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	txm := database.NewTxManager(db, 5, logger)
	offerRepo := repository.NewGormOfferRepository(db)
	couponRepo := repository.NewGormCouponRepository(db)
	loyaltyRepo := repository.NewGormLoyaltyRepository(db)

	producer := kafka.NewProducer(brokers, logger)
	notifier := couponEvents.NewCouponEventPublisher(producer, logger)
	sagaSvc := saga.NewClaimSagaService(idempotency.NewMemoryStore(), time.Hour, logger)

	offerSvc := application.NewOfferService(txm, offerRepo, logger)
	groupID := fmt.Sprintf("test-coupon-%s", uuid.New().String()[:8])

	return &couponStack{
		Claims:          application.NewClaimService(txm, offerRepo, couponRepo, loyaltyRepo, coupon.NewGenerator(), sagaSvc, notifier, nil, logger),
		Redemptions:     application.NewRedemptionService(txm, offerRepo, couponRepo, notifier, nil, logger),
		Offers:          offerSvc,
		Loyalty:         application.NewLoyaltyService(loyaltyRepo),
		Consumer:        couponEvents.NewOfferCatalogConsumer(brokers, groupID, offerSvc, nil, logger),
		CleanupProducer: func() { _ = producer.Close() },
	}
}

// seedOffer inserts an active offer directly.
func seedOffer(t *testing.T, db *gorm.DB, maxCoupons, discount int) uuid.UUID {
	t.Helper()
	now := time.Now().UTC()
	model := repository.OfferModel{
		ID:                 uuid.New(),
		RestaurantID:       uuid.New(),
		RestaurantName:     "Spice Route",
		Title:              fmt.Sprintf("%d%% off", discount),
		DiscountPercentage: discount,
		OfferType:          "both",
		MaxCoupons:         maxCoupons,
		ValidUntil:         now.Add(24 * time.Hour),
		IsActive:           true,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	require.NoError(t, db.Create(&model).Error, "failed to seed offer")
	return model.ID
}

// loadOffer reads the offer row.
func loadOffer(t *testing.T, db *gorm.DB, id uuid.UUID) repository.OfferModel {
	t.Helper()
	var model repository.OfferModel
	require.NoError(t, db.Where("id = ?", id).First(&model).Error)
	return model
}

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, source, eventType string, data interface{}) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	producer := kafka.NewProducer(brokers, logger)
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(source, eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	err = producer.PublishEvent(context.Background(), topic, ce)
	require.NoError(t, err, "failed to publish event")
}

// consumeEvents reads from a Kafka topic until it has n events of the expected type.
func consumeEvents(t *testing.T, brokers []string, topic, expectedType string, n int, timeout time.Duration) []kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	var found []kafka.CloudEvent
	for len(found) < n {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for %d events of type %q on topic %q (got %d)", n, expectedType, topic, len(found))
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			found = append(found, ce)
		}
	}
	return found
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
