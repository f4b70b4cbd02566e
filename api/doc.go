// Package api é o roteador HTTP público do gateway de receitas.
//
// Rotas (fixas):
//
//	OPTIONS *                      preflight CORS, 200 sem corpo
//	POST    /api/generate-recipe   cota -> limite de concorrência -> geração
//	GET     /api/test-rate-limit   estado da cota do cliente
//	DELETE  /api/test-rate-limit   reset administrativo da cota do cliente
//
// Qualquer outra combinação responde 404 "Not Found" em texto puro. Toda resposta
// leva Access-Control-Allow-Origin: *.
package api
