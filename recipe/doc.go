// Package recipe é o gateway de geração: valida a entrada, monta o prompt,
// chama o provider de texto (OpenAI chat completions) e devolve o JSON gerado.
//
// O JSON do provider não passa por validação de schema além do parse. Um objeto
// {"error": "..."} do provider (ingredientes insuficientes) é repassado como está.
package recipe
