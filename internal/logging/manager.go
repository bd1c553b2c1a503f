package logging

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"
)

// LoggerManager раздаёт логгеры компонентов (world, engine, storage, api).
// Все компоненты пишут в один общий файл, в строке указан компонент.
type LoggerManager struct {
	mu      sync.Mutex
	opts    Options
	file    *os.File
	loggers map[string]*Logger
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = NewLoggerManager(Options{Dir: "logs", ConsoleLevel: INFO, FileLevel: TRACE})
	})
	return globalManager
}

// NewLoggerManager создаёт менеджер с общими параметрами для всех компонентов
func NewLoggerManager(opts Options) *LoggerManager {
	return &LoggerManager{
		opts:    opts,
		loggers: make(map[string]*Logger),
	}
}

// Configure применяет параметры к уже выданным логгерам и к новым.
// Логгеры, созданные до вызова (например, при сборке мира), продолжают работать.
func (lm *LoggerManager) Configure(opts Options) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var err error
	if opts.Dir != lm.opts.Dir || lm.file == nil {
		err = lm.reopenLocked(opts.Dir)
	}
	lm.opts = opts
	for _, l := range lm.loggers {
		lm.attachLocked(l)
	}
	return err
}

// reopenLocked закрывает общий файл и открывает новый в dir; пустой dir - без файла
func (lm *LoggerManager) reopenLocked(dir string) error {
	if lm.file != nil {
		_ = lm.file.Close()
		lm.file = nil
	}
	if dir == "" {
		return nil
	}
	file, err := openLogFile(dir, "components")
	if err != nil {
		return err
	}
	lm.file = file
	return nil
}

// attachLocked направляет логгер в текущие консоль и файл менеджера
func (lm *LoggerManager) attachLocked(l *Logger) {
	console := lm.opts.Console
	if console == nil {
		console = os.Stdout
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.consoleLogger = log.New(console, "", log.LstdFlags)
	l.minConsoleLevel = lm.opts.ConsoleLevel
	l.minFileLevel = lm.opts.FileLevel
	l.fileLogger = nil
	if lm.file != nil {
		l.fileLogger = log.New(lm.file, "", log.LstdFlags)
	}
}

// GetLogger возвращает логгер компонента, создавая его при первом обращении.
// Ошибка означает, что файл логов открыть не удалось; логгер при этом пишет в консоль.
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if l, ok := lm.loggers[component]; ok {
		return l, nil
	}

	var err error
	if lm.file == nil && lm.opts.Dir != "" {
		if err = lm.reopenLocked(lm.opts.Dir); err != nil {
			err = fmt.Errorf("логгер %s: %w", component, err)
		}
	}

	l := &Logger{component: component}
	lm.attachLocked(l)
	lm.loggers[component] = l
	return l, err
}

// MustGetLogger возвращает логгер компонента, печатая ошибку файла в консоль
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	l, err := lm.GetLogger(component)
	if err != nil {
		l.Warn("Логи компонента только в консоли: %v", err)
	}
	return l
}

// CloseAll закрывает общий файл и забывает выданные логгеры.
// Выданные логгеры остаются рабочими и пишут только в консоль.
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var errs []error
	for _, l := range lm.loggers {
		l.mu.Lock()
		l.fileLogger = nil
		l.mu.Unlock()
	}
	if lm.file != nil {
		if err := lm.file.Close(); err != nil {
			errs = append(errs, err)
		}
		lm.file = nil
	}
	lm.loggers = make(map[string]*Logger)
	return errors.Join(errs...)
}

// ListComponents возвращает отсортированный список компонентов
func (lm *LoggerManager) ListComponents() []string {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	components := make([]string, 0, len(lm.loggers))
	for component := range lm.loggers {
		components = append(components, component)
	}
	sort.Strings(components)
	return components
}

// SetLogLevel меняет уровни одного компонента
func (lm *LoggerManager) SetLogLevel(component string, consoleLevel, fileLevel LogLevel) error {
	lm.mu.Lock()
	l, ok := lm.loggers[component]
	lm.mu.Unlock()
	if !ok {
		return fmt.Errorf("логгер компонента %s не найден", component)
	}

	l.mu.Lock()
	l.minConsoleLevel = consoleLevel
	l.minFileLevel = fileLevel
	l.mu.Unlock()
	return nil
}

// GetComponentLogger возвращает логгер компонента из глобального менеджера
func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().MustGetLogger(component)
}

func GetWorldLogger() *Logger   { return GetComponentLogger("world") }
func GetEngineLogger() *Logger  { return GetComponentLogger("engine") }
func GetStorageLogger() *Logger { return GetComponentLogger("storage") }
func GetAPILogger() *Logger     { return GetComponentLogger("api") }
