package service

import (
	"errors"
)

var (
	// ErrScanInProgress 设备已有扫描在进行
	ErrScanInProgress = errors.New("scan already in progress for device")
	// ErrNoPackages CUSTOM 扫描未指定包名
	ErrNoPackages = errors.New("custom scan requires at least one package")
	// ErrInvalidScanType 未知扫描类型
	ErrInvalidScanType = errors.New("invalid scan type")
	// ErrInvalidPeriod 未知报告周期
	ErrInvalidPeriod = errors.New("invalid report period")
	// ErrJobNotFound 任务不存在
	ErrJobNotFound = errors.New("scan job not found")
)
