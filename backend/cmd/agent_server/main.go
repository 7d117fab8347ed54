package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/IBM/sarama"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/gorilla/websocket"

	"mdcollab/backend/config"
	"mdcollab/backend/internal/autosave"
	"mdcollab/backend/internal/doc"
	"mdcollab/backend/internal/events"
	"mdcollab/backend/internal/executor"
	"mdcollab/backend/internal/ipc"
	"mdcollab/backend/internal/store"
	"mdcollab/backend/internal/ws"
)

// IPC 链路的 upgrader：只有同机的视图进程会来连，来源不做限制
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func main() {
	cfg, err := config.LoadAgent()
	if err != nil {
		log.Fatalf("init config failed: %v", err)
	}
	log.Printf("config: %+v", cfg)

	fileStore, err := store.NewFileStore(cfg.Storage.Dir)
	if err != nil {
		log.Fatalf("init file store failed: %v", err)
	}

	// MySQL 快照历史（可选）
	var snapStore *store.SnapshotStore
	if cfg.Mysql.Enabled {
		db, err := sql.Open("mysql", cfg.Mysql.DSN)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		snapStore = store.NewSnapshotStore(db)
	}

	// Kafka 事件总线（可选）
	var dispatcher *events.Dispatcher
	if cfg.Kafka.Enabled {
		kafkaCfg := sarama.NewConfig()
		// SyncProducer 必须开启 Return.Successes
		kafkaCfg.Producer.Return.Successes = true
		kafkaCfg.Producer.RequiredAcks = sarama.WaitForLocal
		producer, err := sarama.NewSyncProducer(cfg.Kafka.Brokers, kafkaCfg)
		if err != nil {
			log.Fatalf("Failed to connect kafka: %v", err)
		}
		defer producer.Close()

		dispatcher = events.NewDispatcher(
			producer,
			events.Topics{Ops: cfg.Kafka.TopicOps, Saves: cfg.Kafka.TopicSaves},
			events.NewSemaphoreControl(100),
			events.DispatcherOptions{
				QueueSize:   10_000,
				Workers:     4,
				MaxRetry:    3,
				BaseBackoff: 50 * time.Millisecond,
				MaxBackoff:  1 * time.Second,
			},
		)
	}

	// 共享文本会话：新文档的初始内容从文件存储加载
	session := doc.NewSession(func(docID string) string {
		content, err := fileStore.Load(docID)
		if err != nil {
			log.Printf("load document %s failed: %v", docID, err)
			return ""
		}
		return content
	})

	// 持久化落点：文件为准，MySQL 快照和 Kafka 事件尽力而为
	sink := func(ctx context.Context, docID, content string, revision uint64) error {
		if err := fileStore.Persist(ctx, docID, content, revision); err != nil {
			if dispatcher != nil {
				_ = dispatcher.Enqueue(ctx, events.SaveEvent{
					EventType: "DOC_SAVE_FAILED",
					DocID:     docID,
					Revision:  revision,
					Error:     err.Error(),
					SavedAt:   time.Now(),
				})
			}
			return err
		}
		if snapStore != nil {
			if err := snapStore.SaveDocumentSnapshot(ctx, docID, revision, content); err != nil {
				log.Printf("mysql snapshot failed (doc=%s rev=%d): %v", docID, revision, err)
			}
		}
		if dispatcher != nil {
			_ = dispatcher.Enqueue(ctx, events.SaveEvent{
				EventType: "DOC_SAVED",
				DocID:     docID,
				Revision:  revision,
				Path:      fileStore.Path(docID),
				SavedAt:   time.Now(),
			})
		}
		return nil
	}

	var exec *executor.Executor
	saver := autosave.NewScheduler(
		time.Duration(cfg.AutoSave.DebounceMs)*time.Millisecond,
		func(docID string) (string, uint64) {
			return session.GetOrCreate(docID).Snapshot()
		},
		sink,
		func(docID string, evt ws.Event) {
			if exec != nil {
				exec.Notify(evt)
			}
		},
	)

	apiKey := cfg.LLM.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	gen, err := executor.NewGeminiGenerator(context.Background(), apiKey, cfg.LLM.Model)
	if err != nil {
		log.Fatalf("init generator failed: %v", err)
	}

	exec = executor.New(session, gen, saver, dispatcher)

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	// 视图进程从这里接入；一条连接对应一条 IPC 链路
	r.GET("/ipc", func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("ipc upgrade error: %v", err)
			return
		}
		ep := ipc.NewWSEndpoint(conn)
		executor.NewLink(ep, exec, session)
		// 读循环阻塞至视图进程断开
		ep.Run()
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "ok"})
	})

	_ = r.Run(fmt.Sprintf(":%d", cfg.Running.Port))
}
