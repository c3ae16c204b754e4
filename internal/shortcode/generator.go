package shortcode

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// Charset 包含用于生成短码的所有字符
	Charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// CodeLength 是生成的短码的长度
	CodeLength = 7
	// ChannelBufferSize 是短码通道的缓冲区大小
	ChannelBufferSize = 1000
	// MinFillThreshold 是触发补充的最小阈值
	MinFillThreshold = 100
	// maxAttempts 单个短码的最大冲突重试次数
	maxAttempts = 10
)

// ErrExhausted 多次尝试后仍无法生成未占用的短码
var ErrExhausted = errors.New("unable to generate unique slug")

// SlugChecker 判断短码是否已被占用
type SlugChecker interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// Generator 负责生成和提供唯一的短码
type Generator struct {
	checker   SlugChecker
	codeChan  chan string
	mu        sync.Mutex
	isFilling bool
	stopChan  chan struct{}
	stopOnce  sync.Once
	logger    *zap.SugaredLogger
}

// NewGenerator 创建一个新的短码生成器实例
func NewGenerator(checker SlugChecker, logger *zap.SugaredLogger) *Generator {
	return &Generator{
		checker:  checker,
		codeChan: make(chan string, ChannelBufferSize),
		stopChan: make(chan struct{}),
		logger:   logger.Named("shortcode_generator"),
	}
}

// Start 启动后台短码生成和补充任务
func (g *Generator) Start() {
	g.logger.Info("启动短码生成器...")
	go g.fillChannel()
	go g.monitorAndRefill()
}

// Stop 停止短码生成器，可重复调用
func (g *Generator) Stop() {
	g.stopOnce.Do(func() {
		g.logger.Info("正在停止短码生成器...")
		close(g.stopChan)
	})
}

// Next 取出一个短码；通道为空时直接同步生成，不阻塞调用方
func (g *Generator) Next(ctx context.Context) (string, error) {
	select {
	case code := <-g.codeChan:
		return code, nil
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	code, err := g.generateUniqueCode(ctx)
	if err != nil {
		return "", err
	}
	if code == "" {
		return "", ErrExhausted
	}
	return code, nil
}

// monitorAndRefill 监视通道的填充水平并根据需要进行补充
func (g *Generator) monitorAndRefill() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if len(g.codeChan) < MinFillThreshold {
				g.fillChannel()
			}
		case <-g.stopChan:
			g.logger.Info("已停止监控和补充任务。")
			return
		}
	}
}

// fillChannel 生成短码并填充通道
func (g *Generator) fillChannel() {
	g.mu.Lock()
	if g.isFilling {
		g.mu.Unlock()
		return
	}
	g.isFilling = true
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.isFilling = false
		g.mu.Unlock()
	}()

	g.logger.Debugf("通道中剩余 %d 个短码，开始补充...", len(g.codeChan))
	for len(g.codeChan) < ChannelBufferSize {
		select {
		case <-g.stopChan:
			g.logger.Info("填充任务已中断。")
			return
		default:
			code, err := g.generateUniqueCode(context.Background())
			if err != nil {
				g.logger.Errorf("生成唯一短码时出错: %v", err)
				// 避免在错误情况下快速循环
				select {
				case <-time.After(time.Second):
				case <-g.stopChan:
					return
				}
				continue
			}
			if code != "" {
				select {
				case g.codeChan <- code:
				case <-g.stopChan:
					return
				}
			}
		}
	}
	g.logger.Debugf("短码通道已填满，现有 %d 个。", len(g.codeChan))
}

// generateUniqueCode 生成一个在存储中未被占用的短码，全部冲突时返回空字符串
func (g *Generator) generateUniqueCode(ctx context.Context) (string, error) {
	for i := 0; i < maxAttempts; i++ {
		code, err := RandomString(CodeLength)
		if err != nil {
			return "", err
		}
		exists, err := g.checker.SlugExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	g.logger.Warnf("已尝试%d次生成短码，但均存在冲突。", maxAttempts)
	return "", nil
}

// RandomString 使用加密安全的随机数生成器生成一个给定长度的字符串
func RandomString(length int) (string, error) {
	b := make([]byte, length)
	charsetLen := big.NewInt(int64(len(Charset)))
	for i := range b {
		num, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", err
		}
		b[i] = Charset[num.Int64()]
	}
	return string(b), nil
}
