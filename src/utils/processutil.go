package utils

import (
	"fmt"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// 辅助函数：判断DataFrame是否有某列
func HasColumn(df dataframe.DataFrame, name string) bool {
	return Contains(df.Names(), name)
}

// Rows 按行号取子表，行号为空时返回保留列名和类型的空表
func Rows(df dataframe.DataFrame, idx []int) dataframe.DataFrame {
	if df.Ncol() == 0 || len(idx) == df.Nrow() && isIdentity(idx) {
		return df
	}
	if len(idx) > 0 {
		return df.Subset(idx)
	}

	columns := make([]series.Series, 0, df.Ncol())
	for _, name := range df.Names() {
		col := df.Col(name)
		columns = append(columns, series.New([]string{}, col.Type(), name))
	}
	return dataframe.New(columns...)
}

// Head 取前n行
func Head(df dataframe.DataFrame, n int) dataframe.DataFrame {
	if df.Nrow() <= n {
		return df
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return Rows(df, idx)
}

// EnsureDir 确保目录存在
func EnsureDir(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}
	return nil
}

func isIdentity(idx []int) bool {
	for i, v := range idx {
		if i != v {
			return false
		}
	}
	return true
}
