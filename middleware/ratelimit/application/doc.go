// Package application reúne as regras de uso que não dependem de transporte:
// admissão na janela de 3h (Service) e vagas de geração (GenerationSlots).
package application
