package processor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"SiamikDashboard/src/config"
	"SiamikDashboard/src/datasource/file"
	"SiamikDashboard/src/storage"

	"github.com/go-gota/gota/dataframe"
)

// Snapshot 一次加载得到的只读数据：原始表、规范表及识别元数据
type Snapshot struct {
	Raw       dataframe.DataFrame
	Canonical dataframe.DataFrame
	Meta      DetectionMetadata
	Warnings  []string
	BuiltAt   time.Time

	dcfg *config.DataConfig
}

// NewSnapshot 直接由两张表构造快照
func NewSnapshot(raw, transformed dataframe.DataFrame, dcfg *config.DataConfig) *Snapshot {
	canonical, meta := NewNormalizer(dcfg).Normalize(transformed)
	return &Snapshot{
		Raw:       raw,
		Canonical: canonical,
		Meta:      meta,
		Warnings:  []string{},
		BuiltAt:   time.Now(),
		dcfg:      dcfg,
	}
}

// All "不过滤"的选项取值
func (s *Snapshot) All() string { return s.dcfg.Labels.All }

// Selection 构造选择，空值视为All
func (s *Snapshot) Selection(faculty, program string) Selection {
	return NewSelection(faculty, program, s.All())
}

// Filtered 过滤后的规范表
func (s *Snapshot) Filtered(sel Selection) dataframe.DataFrame {
	return FilterCanonical(s.Canonical, sel, s.All())
}

// FilteredRaw 过滤后的原始表
func (s *Snapshot) FilteredRaw(sel Selection) dataframe.DataFrame {
	rc := s.dcfg.RawColumns
	return FilterRaw(s.Raw, sel, s.All(), rc.Faculty, rc.Program)
}

// Options 过滤选项
func (s *Snapshot) Options() Options {
	return Options{
		Faculties: FacultyOptions(s.Canonical, s.All()),
		Programs:  ProgramOptions(s.Canonical, s.All()),
	}
}

func (s *Snapshot) facultyLabel(col string) string {
	return stripPrefixFold(col, s.dcfg.Detection.FacultyPrefix)
}

func (s *Snapshot) problemLabel(col string) string {
	return replaceAll(col, s.dcfg.Detection.ProblemLabel)
}

func (s *Snapshot) priorityLabel(col string) string {
	return replaceAll(col, s.dcfg.Detection.PriorityLabel)
}

// DataProcessor 持有数据集缓存并维护当前快照
type DataProcessor struct {
	cfg    *config.Config
	dcfg   *config.DataConfig
	cache  *file.DatasetCache
	logger *storage.Logger

	rebuildMu sync.Mutex // 从加载到保存快照全程持有，保证后加载的数据后保存
	mu        sync.RWMutex
	snapshot  *Snapshot
}

// NewDataProcessor 创建数据处理器，首次调用Snapshot前需要Rebuild
func NewDataProcessor(cfg *config.Config, dcfg *config.DataConfig, cache *file.DatasetCache, logger *storage.Logger) *DataProcessor {
	return &DataProcessor{
		cfg:    cfg,
		dcfg:   dcfg,
		cache:  cache,
		logger: logger,
	}
}

// Paths 两个数据集的路径：转换后数据、原始数据
func (p *DataProcessor) Paths() []string {
	return []string{p.cfg.Data.TransformedPath, p.cfg.Data.RawPath}
}

// Snapshot 返回当前快照，尚未构建时立即构建
func (p *DataProcessor) Snapshot() *Snapshot {
	p.mu.RLock()
	s := p.snapshot
	p.mu.RUnlock()
	if s != nil {
		return s
	}
	return p.Rebuild()
}

// Rebuild 从缓存重新读取两个数据集并规范化，加载失败记为WARNING
func (p *DataProcessor) Rebuild() *Snapshot {
	p.rebuildMu.Lock()
	defer p.rebuildMu.Unlock()
	start := time.Now()

	transformed, terr := p.cache.Get(p.cfg.Data.TransformedPath)
	raw, rerr := p.cache.Get(p.cfg.Data.RawPath)

	s := NewSnapshot(raw, transformed, p.dcfg)
	for _, err := range []error{terr, rerr} {
		if err == nil {
			continue
		}
		s.Warnings = append(s.Warnings, err.Error())
		var lf *file.LoadFailure
		if errors.As(err, &lf) {
			p.logger.Warning(fmt.Sprintf("数据集加载失败(%s): %v", lf.Path, lf.Err))
		} else {
			p.logger.Warning(err.Error())
		}
	}

	p.mu.Lock()
	p.snapshot = s
	p.mu.Unlock()

	p.logger.Info(fmt.Sprintf("数据快照已更新: 原始数据%d行, 规范数据%d行, 耗时%v",
		s.Raw.Nrow(), s.Canonical.Nrow(), time.Since(start)))
	return s
}

// Reload 清空缓存并重建快照
func (p *DataProcessor) Reload() *Snapshot {
	p.cache.InvalidateAll()
	return p.Rebuild()
}

// OnFileChanged 文件变更回调：只失效对应路径
func (p *DataProcessor) OnFileChanged(path string) {
	p.logger.Info("检测到数据文件变更: " + path)
	p.cache.Invalidate(path)
	p.Rebuild()
}

// RefreshIfStale 任一数据文件修改时间变化时重建，返回是否重建
func (p *DataProcessor) RefreshIfStale() bool {
	stale := false
	for _, path := range p.Paths() {
		if p.cache.Stale(path) {
			p.cache.Invalidate(path)
			stale = true
		}
	}
	if stale {
		p.Rebuild()
	}
	return stale
}
