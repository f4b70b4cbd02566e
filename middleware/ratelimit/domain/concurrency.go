package domain

import "context"

// SlotPool limita as gerações em andamento no provider.
//
// Acquire bloqueia até haver vaga ou o ctx terminar. O release devolvido pode ser
// chamado mais de uma vez; só a primeira chamada devolve a vaga.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
	TryAcquire() (release func(), ok bool)
	InUse() int
	Cap() int
}
