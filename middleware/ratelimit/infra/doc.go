// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - MemoryStore: mapa local com TTL e janitor opcional (dev/testes)
//   - RedisStore: registro JSON por chave com EXPIRE (caminho durável)
//   - SQLStore: tabela GORM/SQLite com coluna expires_at (nó único)
//   - MemoryStatsStore / RedisStatsStore / PromStatsStore: estatísticas de admissão
//   - SlotSemaphore: vagas de geração simultânea no provider
package infra
