package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/voicerelay/backend/internal/config"
	"github.com/voicerelay/backend/internal/model/persona"
	"github.com/voicerelay/backend/internal/service/ai"
	"github.com/voicerelay/backend/internal/service/chat"
	"github.com/voicerelay/backend/internal/service/speech"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	mode := flag.String("mode", "exchange", "测试模式: exchange, completion 或 synthesis")
	text := flag.String("text", "", "输入文本")
	timeout := flag.Duration("timeout", 60*time.Second, "请求超时时间")

	flag.Parse()

	if *mode != "exchange" && *mode != "completion" && *mode != "synthesis" {
		flag.Usage()
		log.Fatal("请通过 -mode=exchange|completion|synthesis 指定测试模式")
	}
	if strings.TrimSpace(*text) == "" {
		log.Fatal("需要通过 -text 提供输入文本")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	speechClient := speech.NewClient(cfg.Speech.BaseURL,
		speech.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Speech.Timeout) * time.Second}),
	)

	if *mode == "synthesis" {
		seconds := speechClient.Duration(ctx, *text)
		log.Printf("合成完成: audio_length=%.3fs", seconds)
		return
	}

	aiService := newAIService(ctx, cfg)

	switch *mode {
	case "completion":
		reply, err := aiService.Complete(ctx, *text)
		if err != nil {
			log.Fatalf("补全调用失败: %v", err)
		}
		log.Printf("补全成功: %q", reply)
	case "exchange":
		resp, err := chat.NewService(aiService, speechClient).Exchange(ctx, *text)
		if err != nil {
			log.Fatalf("对话调用失败: %v", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			log.Fatalf("输出结果失败: %v", err)
		}
	}
}

func newAIService(ctx context.Context, cfg *config.Config) *ai.Service {
	p, err := persona.Load(cfg.Persona.File, persona.Overrides{
		SystemPrompt: cfg.Persona.Prompt,
		MaxTokens:    cfg.Persona.MaxTokens,
		Temperature:  cfg.Persona.Temperature,
	})
	if err != nil {
		log.Fatalf("persona 加载失败: %v", err)
	}

	chatModel, err := ai.NewChatModel(ctx, cfg.Completion)
	if err != nil {
		log.Fatalf("模型创建失败: %v", err)
	}

	svc, err := ai.NewService(ctx, chatModel, p, nil)
	if err != nil {
		log.Fatalf("AI 服务初始化失败: %v", err)
	}
	return svc
}
