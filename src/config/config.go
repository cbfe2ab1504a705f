package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Config 结构体定义了应用程序的配置结构
type Config struct {
	Server struct {
		Addr           string   `json:"addr"`            // HTTP监听地址
		AllowedOrigins []string `json:"allowed_origins"` // CORS允许的前端地址
	} `json:"server"`

	Data struct {
		TransformedPath string   `json:"transformed_path"` // 转换后的问卷数据
		RawPath         string   `json:"raw_path"`         // 原始问卷数据
		SheetName       string   `json:"sheet_name"`       // xlsx输入时的工作表名
		RefreshInterval Duration `json:"refresh_interval"` // 过期检查间隔
		Watch           bool     `json:"watch"`            // 是否启用fsnotify监控
	} `json:"data"`

	Export struct {
		Dir      string `json:"dir"`       // 导出文件目录
		FileName string `json:"file_name"` // 导出文件名(不含扩展名)
	} `json:"export"`

	Email struct {
		Enabled       bool     `json:"enabled"`
		Server        string   `json:"server"`         // 邮件服务器地址
		Username      string   `json:"username"`       // 邮箱用户名
		Password      string   `json:"password"`       // 邮箱密码
		TargetSubject string   `json:"target_subject"` // 需要匹配的邮件主题
		CheckInterval Duration `json:"check_interval"` // 检查新邮件的间隔时间
	} `json:"email"`

	SendEmail struct {
		Server   string `json:"server"`   // SMTP服务器地址
		Username string `json:"username"` // 发件人
		Password string `json:"password"` // 发件密码
		To       string `json:"to"`       // 收件人
		Subject  string `json:"subject"`  // 邮件主题
	} `json:"send_email"`

	DataDir    string `json:"data_dir"` // 应用程序数据存储目录
	LogName    string `json:"log_name"`
	LogMaxSize string `json:"log_max_size"`
	PidFile    string `json:"pid_file"`
}

// DataConfig 问卷列名相关配置
type DataConfig struct {
	Rename     map[string]string `json:"rename"`
	Detection  DetectionConfig   `json:"detection"`
	RawColumns RawColumns        `json:"raw_columns"`
	Labels     Labels            `json:"labels"`
}

// DetectionConfig 列组识别规则
type DetectionConfig struct {
	FacultyPrefix    string   `json:"faculty_prefix"`
	ProgramPrefix    string   `json:"program_prefix"`
	ProblemPrefix    string   `json:"problem_prefix"`
	ProblemKeyword   string   `json:"problem_keyword"`
	ProblemLabel     string   `json:"problem_label"`
	PriorityPrefixes []string `json:"priority_prefixes"`
	PriorityKeyword  string   `json:"priority_keyword"`
	PriorityLabel    string   `json:"priority_label"`
	FacultyKeywords  []string `json:"faculty_keywords"`
	ProgramKeywords  []string `json:"program_keywords"`
	PriorityAltWords []string `json:"priority_alt_keywords"`
	PriorityAltExact string   `json:"priority_alt_substring"`
	LostLabelColumn  string   `json:"lost_label_column"`
}

// RawColumns 原始数据里的题目列名
type RawColumns struct {
	Faculty      string `json:"faculty"`
	Program      string `json:"program"`
	Ease         string `json:"ease"`
	Satisfaction string `json:"satisfaction"`
	Login        string `json:"login"`
	AccWait      string `json:"acc_wait"`
	Lost         string `json:"lost"`
}

// Labels 默认标签
type Labels struct {
	Unknown string `json:"unknown"`
	All     string `json:"all"`
}

var mu sync.RWMutex

// DefaultConfig 返回内置默认配置
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Server.Addr = ":8080"
	cfg.Server.AllowedOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	cfg.Data.TransformedPath = "data_final_transformed (1).csv"
	cfg.Data.RawPath = "Data_Responden.csv"
	cfg.Data.RefreshInterval = Duration(time.Minute)
	cfg.Data.Watch = true
	cfg.Export.Dir = "export"
	cfg.Export.FileName = "siamik_filtered"
	cfg.Email.TargetSubject = "SIAMIK"
	cfg.Email.CheckInterval = Duration(5 * time.Minute)
	cfg.SendEmail.Subject = "SIAMIK filtered export"
	cfg.DataDir = "."
	cfg.LogName = "app.log"
	cfg.LogMaxSize = "10 * 1024 * 1024"
	cfg.PidFile = "siamik.pid"
	return cfg
}

// DefaultDataConfig 返回内置的列名映射和识别规则
func DefaultDataConfig() *DataConfig {
	return &DataConfig{
		Rename: map[string]string{
			"std_Seberapa mudah Anda mengakses SIAMIK saat war KRS berlangsung?":                                             "ease_of_access_std",
			"std_Berapa lama rata-rata waktu login yang Anda alami saat war KRS? (.....menit)":                               "login_duration_std",
			"std_Seberapa sering Anda mengalami gagal masuk atau error saat login di SIAMIK?":                                "login_errors_std",
			"std_Berapa lama waktu yang Anda perlukan untuk menunggu ACC dari sistem/webnya? (....menit/jam)":                "acc_wait_std",
			"std_Seberapa puas Anda secara keseluruhan terhadap SIAMIK dalam proses War KRS dan ACC?":                        "overall_satisfaction_std",
			"std_Berdasarkan pengalaman terakhir anda, Bagaimana penilaian anda terhadap kualitas SIAMIK saat war KRS dan ACC?": "system_quality_std",
			"log_Berapa lama rata-rata waktu login yang Anda alami saat war KRS? (.....menit)":                               "login_duration_log",
			"log_Berapa lama waktu yang Anda perlukan untuk menunggu ACC dari sistem/webnya? (....menit/jam)":                "acc_wait_log",
			"lbl_Apakah Anda pernah kehilangan mata kuliah karena slot penuh akibat lambatnya SIAMIK?":                       "lost_courses_lbl",
		},
		Detection: DetectionConfig{
			FacultyPrefix:    "Fakultas_",
			ProgramPrefix:    "Prodi_",
			ProblemPrefix:    "Masalah utama",
			ProblemKeyword:   "masalah utama",
			ProblemLabel:     "Masalah utama yang paling sering Anda alami saat war KRS?_",
			PriorityPrefixes: []string{"Jika diberikan kesempatan", "Jika diberikan"},
			PriorityKeyword:  "prioritas",
			PriorityLabel:    "Jika diberikan kesempatan memilih, aspek apa yang paling prioritas untuk diperbaiki pada SIAMIK?_",
			FacultyKeywords:  []string{"fakultas", "faculty"},
			ProgramKeywords:  []string{"prodi", "study"},
			PriorityAltWords: []string{"prioritas", "improvement"},
			PriorityAltExact: "Jika diberikan",
			LostLabelColumn:  "lbl_Apakah Anda pernah kehilangan mata kuliah karena slot penuh akibat lambatnya SIAMIK?",
		},
		RawColumns: RawColumns{
			Faculty:      "Fakultas",
			Program:      "Prodi",
			Ease:         "Seberapa mudah Anda mengakses SIAMIK saat war KRS berlangsung?",
			Satisfaction: "Seberapa puas Anda secara keseluruhan terhadap SIAMIK dalam proses War KRS dan ACC?",
			Login:        "Berapa lama rata-rata waktu login yang Anda alami saat war KRS? (.....menit)",
			AccWait:      "Berapa lama waktu yang Anda perlukan untuk menunggu ACC dari sistem/webnya? (....menit/jam)",
			Lost:         "Apakah Anda pernah kehilangan mata kuliah karena slot penuh akibat lambatnya SIAMIK?",
		},
		Labels: Labels{
			Unknown: "Unknown",
			All:     "All",
		},
	}
}

// LoadConfig 读取配置目录下的两个配置文件
// 文件不存在时使用默认值，解析失败时返回错误
func LoadConfig(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	configFile := filepath.Join(jsonFolder, jsonFile)
	dataConfigFile := filepath.Join(jsonFolder, dataJsonFile)

	configData, err := readFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	dataConfigData, err := readFile(dataConfigFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取数据配置文件失败: %w", err)
	}

	cfgChan := make(chan *Config, 1)
	dcfgChan := make(chan *DataConfig, 1)
	errChan := make(chan error, 2)

	go parseConfig(configData, cfgChan, errChan)
	go parseDataConfig(dataConfigData, dcfgChan, errChan)

	return waitForResults(cfgChan, dcfgChan, errChan)
}

// readFile 读取文件；文件不存在时返回nil内容
func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("无法读取文件 %s: %w", filePath, err)
	}
	return data, nil
}

func parseConfig(data []byte, resultChan chan<- *Config, errChan chan<- error) {
	cfg := DefaultConfig()
	if len(data) > 0 {
		if err := json.Unmarshal(data, cfg); err != nil {
			errChan <- fmt.Errorf("解析Config失败: %w", err)
			return
		}
	}
	resultChan <- cfg
}

func parseDataConfig(data []byte, resultChan chan<- *DataConfig, errChan chan<- error) {
	dcfg := DefaultDataConfig()
	if len(data) > 0 {
		// rename映射整体覆盖，其余字段按JSON中出现的键覆盖
		var overlay DataConfig
		if err := json.Unmarshal(data, &overlay); err != nil {
			errChan <- fmt.Errorf("解析DataConfig失败: %w", err)
			return
		}
		if err := json.Unmarshal(data, dcfg); err != nil {
			errChan <- fmt.Errorf("解析DataConfig失败: %w", err)
			return
		}
		if overlay.Rename != nil {
			dcfg.Rename = overlay.Rename
		}
	}
	resultChan <- dcfg
}

func waitForResults(
	cfgChan <-chan *Config,
	dcfgChan <-chan *DataConfig,
	errChan <-chan error,
) (*Config, *DataConfig, error) {
	var (
		cfg  *Config
		dcfg *DataConfig
		errs []error
	)

	for i := 0; i < 2; i++ {
		select {
		case c := <-cfgChan:
			cfg = c
		case d := <-dcfgChan:
			dcfg = d
		case err := <-errChan:
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return nil, nil, combineErrors(errs)
	}

	if cfg == nil || dcfg == nil {
		return nil, nil, fmt.Errorf("部分配置未加载成功")
	}

	return cfg, dcfg, nil
}

func combineErrors(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	return fmt.Errorf("配置加载遇到多个错误: %w", errors.Join(errs...))
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON序列化和反序列化
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
// 用于从JSON字符串解析Duration
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalJSON 实现json.Marshaler接口
// 用于将Duration序列化为JSON字符串
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std 转为time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// RenameMap 返回列名映射的副本
func (dc *DataConfig) RenameMap() map[string]string {
	mu.RLock()
	defer mu.RUnlock()
	out := make(map[string]string, len(dc.Rename))
	for k, v := range dc.Rename {
		out[k] = v
	}
	return out
}
