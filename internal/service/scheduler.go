package service

import (
	"sync"
	"time"
)

// Scheduler отложенные задачи по ключу, которыми владеет сервис заказов
type Scheduler interface {
	// Schedule заменяет задачу с тем же ключом
	Schedule(key string, delay time.Duration, fn func())
	Cancel(key string) bool
	// Stop отменяет все ожидающие задачи; новые больше не принимаются
	Stop()
}

// TimerScheduler реализация на time.AfterFunc
type TimerScheduler struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	seq     map[string]uint64
	next    uint64
	stopped bool
	wg      sync.WaitGroup
}

func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{
		timers: make(map[string]*time.Timer),
		seq:    make(map[string]uint64),
	}
}

func (s *TimerScheduler) Schedule(key string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if t, ok := s.timers[key]; ok && t.Stop() {
		s.wg.Done()
	}
	s.next++
	id := s.next
	s.seq[key] = id
	s.wg.Add(1)
	s.timers[key] = time.AfterFunc(delay, func() {
		defer s.wg.Done()
		s.mu.Lock()
		if s.seq[key] == id {
			delete(s.timers, key)
			delete(s.seq, key)
		}
		s.mu.Unlock()
		fn()
	})
}

func (s *TimerScheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timers[key]
	if !ok {
		return false
	}
	delete(s.timers, key)
	delete(s.seq, key)
	if t.Stop() {
		s.wg.Done()
		return true
	}
	return false
}

// Pending число ещё не сработавших задач
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for key, t := range s.timers {
		if t.Stop() {
			s.wg.Done()
		}
		delete(s.timers, key)
		delete(s.seq, key)
	}
	s.mu.Unlock()
	// дожидаемся задач, которые уже начали выполняться
	s.wg.Wait()
}
