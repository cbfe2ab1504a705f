// data_handler.go
package email

import (
	"fmt"

	"SiamikDashboard/src/datasource/file"
	"SiamikDashboard/src/storage"
)

// ValidateAttachment 附件必须能解析为至少一行数据的表格
func ValidateAttachment(a *Attachment, sheetName string) error {
	if a == nil || len(a.Content) == 0 {
		return fmt.Errorf("附件内容为空")
	}
	df, err := file.ParseBytes(a.Filename, a.Content, sheetName)
	if err != nil {
		return err
	}
	if df.Ncol() == 0 {
		return fmt.Errorf("附件没有列")
	}
	return nil
}

// Ingester 定时从邮箱拉取数据集附件
type Ingester struct {
	service MailService
	handler EmailHandler
	subject string
	logger  *storage.Logger
}

// NewIngester 创建邮箱拉取任务
func NewIngester(service MailService, handler EmailHandler, subject string, logger *storage.Logger) *Ingester {
	return &Ingester{
		service: service,
		handler: handler,
		subject: subject,
		logger:  logger,
	}
}

// Run 执行一次检查，返回本次保存的文件
// 单封邮件处理失败只记录日志，继续处理其余邮件
func (in *Ingester) Run() ([]string, error) {
	emails, err := CheckAndProcessEmails(in.service, in.subject, in.logger)
	if err != nil {
		return nil, err
	}

	var saved []string
	for _, e := range emails {
		paths, err := in.handler.Handle(e)
		if err != nil {
			in.logger.Error(fmt.Sprintf("处理邮件失败(UID:%d): %v", e.UID, err))
		}
		saved = append(saved, paths...)
	}
	return saved, nil
}
