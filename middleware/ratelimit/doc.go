// Package ratelimit fornece os adapters HTTP (net/http) da cota por cliente e do
// limite de concorrência das gerações.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (janela, decisão, QuotaStore)
//   - application: casos de uso (Decide/Status/Reset, acquire/timeout) sem net/http
//   - infra: implementações concretas (memória, Redis, SQLite, estatísticas, semáforo)
//   - ratelimit (este pacote): identidade do cliente + middlewares HTTP + tradução
//     da decisão para status/headers
//
// Fluxo no gateway:
//
//  1. Resolve a identidade do cliente (CF-Connecting-IP / X-Forwarded-For / X-Real-IP)
//  2. Chama a camada application para obter a decisão
//  3. Se bloqueado, responde 429 com X-RateLimit-Remaining, X-RateLimit-Reset e Retry-After
//  4. Se permitido, grava os headers de cota e chama o próximo handler (geração)
package ratelimit
