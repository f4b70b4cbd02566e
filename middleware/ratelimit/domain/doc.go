// Package domain define contratos e tipos de domínio da cota de uso por cliente.
//
// Este pacote não depende de net/http nem de implementações concretas de storage.
// A intenção é permitir testes de unidade puros e desacoplar a regra de admissão
// (janela fixa de 3h, teto de 10 requisições) de detalhes de infraestrutura.
package domain
