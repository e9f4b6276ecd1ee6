package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-match-go/internal/config"
	"resume-match-go/internal/logger"
	"resume-match-go/internal/tracing"
)

var mqTracer = otel.Tracer("resume-match-go/storage/rabbitmq")

// MessageQueue 消息队列接口
type MessageQueue interface {
	// PublishJSON 发布JSON格式消息
	PublishJSON(ctx context.Context, exchangeName, routingKey string, data any, persistent bool) error
	// Close 关闭连接
	Close() error
}

var _ MessageQueue = (*RabbitMQ)(nil)

// RabbitMQ 提供消息队列功能
type RabbitMQ struct {
	conn         *amqp.Connection
	channelPool  sync.Pool
	mu           sync.Mutex
	declared     map[string]bool // 已声明的exchange/queue/binding
	publishMutex sync.Mutex
	cfg          *config.RabbitMQConfig
}

// NewRabbitMQ 创建RabbitMQ客户端
func NewRabbitMQ(cfg *config.RabbitMQConfig) (*RabbitMQ, error) {
	if cfg == nil {
		return nil, fmt.Errorf("RabbitMQ配置不能为空")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("RabbitMQ URL配置不能为空")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("无法连接到RabbitMQ服务器: %w", err)
	}

	mq := &RabbitMQ{
		conn:     conn,
		declared: make(map[string]bool),
		cfg:      cfg,
	}
	mq.channelPool = sync.Pool{
		New: func() any {
			ch, errPool := conn.Channel()
			if errPool != nil {
				logger.Error().Err(errPool).Msg("创建RabbitMQ通道失败")
				return nil
			}
			return ch
		},
	}

	testCh := mq.getChannel()
	if testCh == nil {
		conn.Close()
		return nil, fmt.Errorf("无法创建RabbitMQ通道")
	}
	mq.putChannel(testCh)

	logger.Info().Str("exchange", cfg.Exchange).Str("queue", cfg.AnalysisQueue).Msg("成功连接到RabbitMQ服务器")
	return mq, nil
}

func (r *RabbitMQ) getChannel() *amqp.Channel {
	ch, _ := r.channelPool.Get().(*amqp.Channel)
	if ch == nil || ch.IsClosed() {
		newCh, err := r.conn.Channel()
		if err != nil {
			logger.Error().Err(err).Msg("创建新RabbitMQ通道失败")
			return nil
		}
		return newCh
	}
	return ch
}

func (r *RabbitMQ) putChannel(ch *amqp.Channel) {
	if ch != nil && !ch.IsClosed() {
		r.channelPool.Put(ch)
	}
}

// Close 关闭连接
func (r *RabbitMQ) Close() error {
	return r.conn.Close()
}

// SetupAnalysisTopology 声明分析请求的 exchange、队列及绑定
func (r *RabbitMQ) SetupAnalysisTopology() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.cfg.Exchange + ":" + r.cfg.AnalysisQueue + ":" + r.cfg.RoutingKey
	if r.declared[key] {
		return nil
	}
	if r.cfg.Exchange == "" || r.cfg.Exchange == "amq.default" {
		return fmt.Errorf("exchange名称无效: '%s'", r.cfg.Exchange)
	}

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("无法获取RabbitMQ通道")
	}
	defer r.putChannel(ch)

	if err := ch.ExchangeDeclare(r.cfg.Exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("声明exchange失败: %w", err)
	}
	if _, err := ch.QueueDeclare(r.cfg.AnalysisQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("声明队列失败: %w", err)
	}
	if err := ch.QueueBind(r.cfg.AnalysisQueue, r.cfg.RoutingKey, r.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("绑定队列失败: %w", err)
	}
	r.declared[key] = true
	logger.Info().Str("exchange", r.cfg.Exchange).Str("queue", r.cfg.AnalysisQueue).
		Str("routing_key", r.cfg.RoutingKey).Msg("已确保分析队列拓扑存在")
	return nil
}

// PublishAnalysisRequested 发布分析请求
func (r *RabbitMQ) PublishAnalysisRequested(ctx context.Context, msg *AnalysisRequestedMessage) error {
	return r.PublishJSON(ctx, r.cfg.Exchange, r.cfg.RoutingKey, msg, true)
}

// PublishJSON 发布JSON格式的消息，追踪上下文写入消息头
func (r *RabbitMQ) PublishJSON(ctx context.Context, exchangeName, routingKey string, data any, persistent bool) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("JSON序列化失败: %w", err)
	}

	ctx, span := mqTracer.Start(ctx, "RabbitMQ.Publish", trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "rabbitmq"),
			attribute.String("messaging.destination", exchangeName),
			attribute.String("messaging.rabbitmq.routing_key", routingKey),
		))
	defer span.End()

	headers := amqp.Table{}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier(headers))

	deliveryMode := amqp.Transient
	if persistent {
		deliveryMode = amqp.Persistent
	}

	r.publishMutex.Lock()
	defer r.publishMutex.Unlock()

	ch := r.getChannel()
	if ch == nil {
		err := fmt.Errorf("无法获取RabbitMQ通道")
		tracing.RecordError(span, err, tracing.ErrorTypeRabbitMQ)
		return err
	}
	defer r.putChannel(ch)

	err = ch.PublishWithContext(ctx, exchangeName, routingKey, false, false, amqp.Publishing{
		Headers:      headers,
		DeliveryMode: deliveryMode,
		ContentType:  "application/json",
		Body:         body,
		Timestamp:    time.Now(),
	})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRabbitMQ)
		return fmt.Errorf("发布消息失败: %w", err)
	}
	return nil
}

// Consume 消费分析队列直到 ctx 结束；handler 返回 false 时消息重新入队
func (r *RabbitMQ) Consume(ctx context.Context, handler func(ctx context.Context, body []byte) bool) error {
	ch, err := r.conn.Channel()
	if err != nil {
		return fmt.Errorf("无法获取RabbitMQ通道: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(r.cfg.PrefetchCount, 0, false); err != nil {
		return fmt.Errorf("设置QoS失败: %w", err)
	}
	deliveries, err := ch.Consume(r.cfg.AnalysisQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("注册消费者失败: %w", err)
	}

	logger.Info().Str("queue", r.cfg.AnalysisQueue).Int("prefetch", r.cfg.PrefetchCount).Msg("RabbitMQ消费者已启动")
	defer logger.Info().Str("queue", r.cfg.AnalysisQueue).Msg("RabbitMQ消费者已停止")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("RabbitMQ通道已关闭")
			}
			msgCtx := otel.GetTextMapPropagator().Extract(ctx, headerCarrier(d.Headers))
			msgCtx, span := mqTracer.Start(msgCtx, "RabbitMQ.Consume", trace.WithSpanKind(trace.SpanKindConsumer),
				trace.WithAttributes(attribute.String("messaging.source", r.cfg.AnalysisQueue)))
			if handler(msgCtx, d.Body) {
				if err := d.Ack(false); err != nil {
					logger.Warn().Err(err).Msg("确认消息失败")
				}
			} else {
				tracing.RecordRabbitMQNack(span, d.MessageId, "handler failed")
				if err := d.Nack(false, true); err != nil {
					logger.Warn().Err(err).Msg("拒绝消息失败")
				}
			}
			span.End()
		}
	}
}

// headerCarrier 让 amqp.Table 满足 propagation.TextMapCarrier
type headerCarrier amqp.Table

func (c headerCarrier) Get(key string) string {
	v, _ := c[key].(string)
	return v
}

func (c headerCarrier) Set(key, value string) {
	c[key] = value
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
