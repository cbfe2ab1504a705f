package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"SiamikDashboard/src/config"
	"SiamikDashboard/src/datasource/email"
	"SiamikDashboard/src/processor"
	"SiamikDashboard/src/storage"
	"SiamikDashboard/src/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-gota/gota/dataframe"
)

// SnapshotSource 提供当前数据快照
type SnapshotSource interface {
	Snapshot() *processor.Snapshot
	Reload() *processor.Snapshot
}

// Mailer 发送导出文件
type Mailer func(cfg *config.Config, attachmentPath string) error

// Response 所有JSON接口的统一结构
type Response struct {
	Selection *processor.Selection `json:"selection,omitempty"`
	Data      any                  `json:"data"`
	Warnings  []string             `json:"warnings"`
}

// MetaInfo /api/meta的数据
type MetaInfo struct {
	Detection     processor.DetectionMetadata `json:"detection"`
	RawRows       int                         `json:"raw_rows"`
	CanonicalRows int                         `json:"canonical_rows"`
	Columns       []string                    `json:"columns"`
	BuiltAt       time.Time                   `json:"built_at"`
}

type Handler struct {
	Source SnapshotSource
	Config *config.Config
	Logger *storage.Logger
	Mailer Mailer
}

func NewHandler(source SnapshotSource, cfg *config.Config, logger *storage.Logger) *Handler {
	return &Handler{
		Source: source,
		Config: cfg,
		Logger: logger,
		Mailer: email.SendExport,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HealthCheck)
	r.Get("/logs", h.StreamLogs)

	r.Route("/api", func(r chi.Router) {
		r.Get("/filters", h.GetFilters)
		r.Get("/quick-stats", h.view(func(s *processor.Snapshot, sel processor.Selection) any {
			return processor.BuildQuickStats(s, sel)
		}))
		r.Get("/overview", h.view(func(s *processor.Snapshot, sel processor.Selection) any {
			return processor.BuildOverview(s, sel)
		}))
		r.Get("/performance", h.view(func(s *processor.Snapshot, sel processor.Selection) any {
			return processor.BuildPerformance(s, sel)
		}))
		r.Get("/satisfaction", h.view(func(s *processor.Snapshot, sel processor.Selection) any {
			return processor.BuildSatisfaction(s, sel)
		}))
		r.Get("/problems", h.view(func(s *processor.Snapshot, sel processor.Selection) any {
			return processor.BuildProblems(s, sel)
		}))
		r.Get("/priorities", h.view(func(s *processor.Snapshot, sel processor.Selection) any {
			return processor.BuildPriorities(s, sel)
		}))
		r.Get("/meta", h.GetMeta)

		r.Get("/export/csv", h.ExportCSV)
		r.Get("/export/xlsx", h.ExportXLSX)
		r.Post("/export/email", h.ExportEmail)
		r.Post("/reload", h.Reload)
	})
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("OK"))
}

func (h *Handler) GetFilters(w http.ResponseWriter, r *http.Request) {
	s := h.Source.Snapshot()
	writeJSON(w, http.StatusOK, Response{Data: s.Options(), Warnings: s.Warnings})
}

func (h *Handler) GetMeta(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, metaResponse(h.Source.Snapshot()))
}

// view 把页面构造函数包装为带过滤参数的handler
func (h *Handler) view(build func(*processor.Snapshot, processor.Selection) any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := h.Source.Snapshot()
		sel := selection(s, r)
		writeJSON(w, http.StatusOK, Response{Selection: &sel, Data: build(s, sel), Warnings: s.Warnings})
	}
}

func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	s := h.Source.Snapshot()
	df := s.Filtered(selection(s, r))

	var buf bytes.Buffer
	if err := utils.WriteFilteredCSV(&buf, df); err != nil {
		h.Logger.Error(err.Error())
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	attachment(w, "text/csv; charset=utf-8", utils.ExportFileName(h.Config.Export.FileName, ".csv"))
	w.Write(buf.Bytes())
}

func (h *Handler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	s := h.Source.Snapshot()
	df := s.Filtered(selection(s, r))

	var buf bytes.Buffer
	if err := utils.WriteExcel(&buf, df); err != nil {
		h.Logger.Error(err.Error())
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	attachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		utils.ExportFileName(h.Config.Export.FileName, ".xlsx"))
	w.Write(buf.Bytes())
}

// ExportEmail 把过滤后的数据(format=csv|xlsx，默认csv)写入导出目录并发送给配置的收件人
func (h *Handler) ExportEmail(w http.ResponseWriter, r *http.Request) {
	if !email.MailConfigured(h.Config) {
		http.Error(w, email.ErrMailNotConfigured.Error(), http.StatusServiceUnavailable)
		return
	}

	s := h.Source.Snapshot()
	df := s.Filtered(selection(s, r))

	if err := utils.EnsureDir(h.Config.Export.Dir); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	var (
		path string
		err  error
	)
	switch format := r.URL.Query().Get("format"); format {
	case "", "csv":
		path = filepath.Join(h.Config.Export.Dir, utils.ExportFileName(h.Config.Export.FileName, ".csv"))
		err = writeCSVFile(path, df)
	case "xlsx":
		path = filepath.Join(h.Config.Export.Dir, utils.ExportFileName(h.Config.Export.FileName, ".xlsx"))
		err = utils.SaveToExcel(df, path)
	default:
		http.Error(w, "unsupported export format: "+format, http.StatusBadRequest)
		return
	}
	if err != nil {
		h.Logger.Error(err.Error())
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := h.Mailer(h.Config, path); err != nil {
		h.Logger.Error("导出邮件发送失败: " + err.Error())
		status := http.StatusInternalServerError
		if errors.Is(err, email.ErrMailNotConfigured) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, err.Error(), status)
		return
	}

	h.Logger.Info("导出邮件已发送: " + path)
	writeJSON(w, http.StatusOK, Response{
		Data:     map[string]any{"sent": true, "file": filepath.Base(path), "rows": df.Nrow()},
		Warnings: s.Warnings,
	})
}

// Reload 清空缓存并重建快照
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	h.Logger.Info("收到重新加载请求")
	writeJSON(w, http.StatusOK, metaResponse(h.Source.Reload()))
}

// StreamLogs 以chunked方式持续输出日志
func (h *Handler) StreamLogs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Transfer-Encoding", "chunked")

	// 创建日志订阅通道
	logChan := h.Logger.Subscribe()
	defer h.Logger.Unsubscribe(logChan)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	for {
		select {
		case msg, ok := <-logChan:
			if !ok {
				return
			}
			// 客户端断开时写入失败，退出循环
			if _, err := fmt.Fprint(w, msg); err != nil {
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		case <-r.Context().Done():
			return
		}
	}
}

func metaResponse(s *processor.Snapshot) Response {
	return Response{
		Data: MetaInfo{
			Detection:     s.Meta,
			RawRows:       s.Raw.Nrow(),
			CanonicalRows: s.Canonical.Nrow(),
			Columns:       nonNil(s.Canonical.Names()),
			BuiltAt:       s.BuiltAt,
		},
		Warnings: s.Warnings,
	}
}

func selection(s *processor.Snapshot, r *http.Request) processor.Selection {
	q := r.URL.Query()
	return s.Selection(q.Get("faculty"), q.Get("prodi"))
}

func attachment(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func writeCSVFile(path string, df dataframe.DataFrame) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建导出文件失败: %w", err)
	}
	if err := utils.WriteFilteredCSV(f, df); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
