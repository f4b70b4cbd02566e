// Package errs define a taxonomia de erros do gateway de receitas.
//
// Cada erro carrega um Code que a camada HTTP traduz para status. A mensagem
// pública nunca inclui a causa (ex.: texto de erro do provider).
package errs
