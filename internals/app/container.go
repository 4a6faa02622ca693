package app

import (
	"context"
	"time"

	"pulsewatch/config"
	middle "pulsewatch/internals/middleware"
	"pulsewatch/internals/modules/anomaly"
	"pulsewatch/internals/modules/monitor"
	"pulsewatch/internals/modules/notification"
	"pulsewatch/internals/modules/prober"
	"pulsewatch/internals/modules/result"
	"pulsewatch/internals/modules/scheduler"
	"pulsewatch/pkg/httpclient"
	"pulsewatch/pkg/rabbitmq"
	"pulsewatch/pkg/redisstore"
	"pulsewatch/pkg/taskqueue"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// handlerTTL bounds one task execution: probe timeout plus persistence
// headroom. The queue's own retry layer handles anything slower.
const handlerTTL = 30 * time.Second

type Container struct {
	DB          *pgxpool.Pool
	RedisClient *redisstore.Client
	RmqConn     *amqp091.Connection
	Logger      *zerolog.Logger

	Scheduler *scheduler.Scheduler

	probeQueue  *taskqueue.Queue
	notifyQueue *taskqueue.Queue

	probePub  *rabbitmq.Publisher
	notifyPub *rabbitmq.Publisher

	probeConsumer  *rabbitmq.Consumer
	notifyConsumer *rabbitmq.Consumer

	monitorSvc *monitor.Service
	opsHandler *OpsHandler
	logMW      middle.Middleware
}

func NewContainer(ctx context.Context, dbPool *pgxpool.Pool, cfg *config.Config, logger *zerolog.Logger) (*Container, error) {

	redisClient, err := redisstore.New(cfg.Redis)
	if err != nil {
		return nil, err
	}

	rmqConn, err := rabbitmq.NewConnection(cfg.RabbitMQ)
	if err != nil {
		return nil, err
	}
	if err := rabbitmq.SetupTopology(rmqConn, cfg.RabbitMQ, cfg.ProbeQueue.Name, cfg.NotifyQueue.Name); err != nil {
		return nil, err
	}

	probePub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQ.ExchangeName, cfg.ProbeQueue.Name)
	if err != nil {
		return nil, err
	}
	notifyPub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQ.ExchangeName, cfg.NotifyQueue.Name)
	if err != nil {
		return nil, err
	}

	probeQueue := taskqueue.New(cfg.ProbeQueue, cfg.Scheduler, redisClient, probePub, logger)
	notifyQueue := taskqueue.New(cfg.NotifyQueue, cfg.Scheduler, redisClient, notifyPub, logger)

	// domain wiring
	monitorRepo := monitor.NewRepository(dbPool, logger)
	monitorSvc := monitor.NewService(monitorRepo)
	notifRepo := notification.NewRepository(dbPool, logger)

	httpClient := httpclient.NewHttpClient()

	registry := notification.NewRegistry(httpClient, cfg.Notify)
	dispatcher := notification.NewDispatcher(notifRepo, notifyQueue, logger)
	sender := notification.NewSender(notifRepo, registry, logger)

	prb := prober.New(httpClient, cfg.Probe, logger)
	detector := anomaly.NewDetector(monitorSvc, dispatcher, logger)
	processor := result.NewProcessor(monitorSvc, prb, detector, dispatcher, logger)
	sch := scheduler.NewScheduler(probeQueue, monitorSvc, processor, logger)

	probeQueue.Register(scheduler.TaskCheckCycle, sch.HandleCheckCycle)
	notifyQueue.Register(notification.TaskSendNotification, sender.HandleSendNotification)

	probeConsumer, err := rabbitmq.NewConsumer(rmqConn, cfg.ProbeQueue.Name, cfg.ProbeQueue.Workers, handlerTTL)
	if err != nil {
		return nil, err
	}
	notifyConsumer, err := rabbitmq.NewConsumer(rmqConn, cfg.NotifyQueue.Name, cfg.NotifyQueue.Workers, handlerTTL)
	if err != nil {
		return nil, err
	}

	return &Container{
		DB:             dbPool,
		RedisClient:    redisClient,
		RmqConn:        rmqConn,
		Logger:         logger,
		Scheduler:      sch,
		probeQueue:     probeQueue,
		notifyQueue:    notifyQueue,
		probePub:       probePub,
		notifyPub:      notifyPub,
		probeConsumer:  probeConsumer,
		notifyConsumer: notifyConsumer,
		monitorSvc:     monitorSvc,
		opsHandler:     NewOpsHandler(sch, monitorSvc, redisClient, []string{cfg.ProbeQueue.Name, cfg.NotifyQueue.Name}),
		logMW:          middle.Logger(logger),
	}, nil
}

// Start launches the promoters and consumers for both queues.
func (c *Container) Start(ctx context.Context) {
	go c.probeQueue.RunPromoter(ctx)
	go c.notifyQueue.RunPromoter(ctx)

	go func() {
		if err := c.probeConsumer.Consume(ctx, c.probeQueue); err != nil {
			c.Logger.Error().Err(err).Str("queue", c.probeQueue.Name()).Msg("consumer stopped")
		}
	}()
	go func() {
		if err := c.notifyConsumer.Consume(ctx, c.notifyQueue); err != nil {
			c.Logger.Error().Err(err).Str("queue", c.notifyQueue.Name()).Msg("consumer stopped")
		}
	}()
}

func (c *Container) Shutdown(ctx context.Context) error {
	// Stop consuming first so in-flight tasks can finish and ack.
	if err := c.probeConsumer.Shutdown(ctx); err != nil {
		c.Logger.Error().Err(err).Msg("probe consumer shutdown failed")
	}
	if err := c.notifyConsumer.Shutdown(ctx); err != nil {
		c.Logger.Error().Err(err).Msg("notify consumer shutdown failed")
	}

	_ = c.probePub.Close()
	_ = c.notifyPub.Close()

	if c.RmqConn != nil {
		_ = c.RmqConn.Close()
	}
	if c.RedisClient != nil {
		_ = c.RedisClient.Close()
	}
	if c.DB != nil {
		c.DB.Close()
	}
	return nil
}
