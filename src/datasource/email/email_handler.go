// email_handler.go
package email

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"SiamikDashboard/src/storage"
	"SiamikDashboard/src/utils"
)

// datasetExts 可以作为数据集的附件类型
var datasetExts = []string{".csv", ".xlsx"}

// ====================== 邮件处理器实现 ======================

// DatasetAttachmentHandler 把与数据集同名的附件保存到数据目录
type DatasetAttachmentHandler struct {
	TargetSubject string          // 目标邮件主题关键词
	DataDir       string          // 附件保存目录
	SheetName     string          // 校验xlsx附件时使用的工作表
	accept        map[string]bool // 接受的文件名(小写)
	logger        *storage.Logger
	processedUIDs map[uint32]bool // 已处理邮件UID记录
	mu            sync.RWMutex    // 保护processedUIDs的读写锁
}

// NewDatasetAttachmentHandler 创建附件处理器，datasets为接受的数据集文件名
func NewDatasetAttachmentHandler(subject, dataDir, sheetName string, datasets []string, logger *storage.Logger) *DatasetAttachmentHandler {
	accept := make(map[string]bool, len(datasets))
	for _, name := range datasets {
		accept[strings.ToLower(filepath.Base(name))] = true
	}
	return &DatasetAttachmentHandler{
		TargetSubject: subject,
		DataDir:       dataDir,
		SheetName:     sheetName,
		accept:        accept,
		logger:        logger,
		processedUIDs: make(map[uint32]bool),
	}
}

// isProcessed 检查邮件是否已处理过（线程安全）
func (h *DatasetAttachmentHandler) isProcessed(uid uint32) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.processedUIDs[uid]
}

// markAsProcessed 标记邮件为已处理（线程安全）
func (h *DatasetAttachmentHandler) markAsProcessed(uid uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.processedUIDs[uid] = true
}

// Accepts 附件名是否对应某个数据集文件
func (h *DatasetAttachmentHandler) Accepts(filename string) bool {
	name := strings.ToLower(filepath.Base(filename))
	return utils.Contains(datasetExts, filepath.Ext(name)) && h.accept[name]
}

// Handle 处理单个邮件，返回保存的文件路径
// 同一UID只保存一次；无法解析的附件跳过并记录警告
func (h *DatasetAttachmentHandler) Handle(email *Email) ([]string, error) {
	if email == nil || h.isProcessed(email.UID) {
		return nil, nil
	}

	if !strings.Contains(email.Subject, h.TargetSubject) {
		h.logger.Debug("跳过主题不匹配的邮件: " + email.Subject)
		return nil, nil
	}

	h.logger.Info(fmt.Sprintf("处理邮件: %s 发件人: %s 日期: %s",
		email.Subject, email.From, email.Date.Format("2006-01-02 15:04:05")))

	if err := utils.EnsureDir(h.DataDir); err != nil {
		return nil, err
	}

	var saved []string
	for _, attachment := range email.Attachments {
		if !h.Accepts(attachment.Filename) {
			continue
		}
		if err := ValidateAttachment(attachment, h.SheetName); err != nil {
			h.logger.Warning(fmt.Sprintf("附件无法解析，已跳过(%s): %v", attachment.Filename, err))
			continue
		}

		filePath := filepath.Join(h.DataDir, filepath.Base(attachment.Filename))
		if err := writeFileAtomic(filePath, attachment.Content); err != nil {
			return saved, fmt.Errorf("保存附件失败: %w", err)
		}
		h.logger.Info("附件已保存到: " + filePath)
		saved = append(saved, filePath)
	}

	// 有数据集附件时才标记为已处理
	if len(saved) > 0 {
		h.markAsProcessed(email.UID)
	}
	return saved, nil
}

// writeFileAtomic 先写临时文件再重命名，文件监控不会读到半个文件
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
