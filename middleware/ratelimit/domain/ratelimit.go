package domain

// Camada de domínio da cota.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import (
	"context"
	"time"
)

// Política fixa: não é negociável por requisição nem por configuração.
const (
	Window  = 3 * time.Hour
	Ceiling = 10
)

// Key identifica o cliente (normalmente o IP resolvido pelos headers).
type Key string

// UsageWindow é o estado de consumo de uma chave dentro da janela atual.
//
// Invariantes: Requests >= 1 e LastRequest >= WindowStart.
type UsageWindow struct {
	Requests    int
	WindowStart time.Time
	LastRequest time.Time
}

// NewUsageWindow abre uma janela nova com a requisição atual já contada.
func NewUsageWindow(now time.Time) UsageWindow {
	return UsageWindow{Requests: 1, WindowStart: now, LastRequest: now}
}

// ResetAt é o instante em que a janela deixa de valer.
func (u UsageWindow) ResetAt() time.Time {
	return u.WindowStart.Add(Window)
}

// Expired segue a regra estrita now - start > janela (no limite exato ainda vale).
func (u UsageWindow) Expired(now time.Time) bool {
	return now.Sub(u.WindowStart) > Window
}

// Remaining nunca é negativo.
func (u UsageWindow) Remaining() int {
	if r := Ceiling - u.Requests; r > 0 {
		return r
	}
	return 0
}

// QuotaStore é o mapa durável chave -> janela, com TTL por chave.
//
// Não há garantia transacional: leituras e escritas concorrentes na mesma chave
// podem se sobrepor (read-modify-write sem CAS). Get retorna found=false quando
// a chave não existe ou o TTL já expirou.
type QuotaStore interface {
	Get(ctx context.Context, key Key) (UsageWindow, bool, error)
	Put(ctx context.Context, key Key, w UsageWindow, ttl time.Duration) error
	Delete(ctx context.Context, key Key) error
}

type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RetryAfter é o tempo até ResetAt arredondado para cima em segundos, nunca negativo.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	left := d.ResetAt.Sub(now)
	if left <= 0 {
		return 0
	}
	secs := left / time.Second
	if left%time.Second != 0 {
		secs++
	}
	return secs * time.Second
}
