package templates

import "quiz-funnel-service/internal/domain"

// Builtin returns fresh copies of the shipped funnel templates.
func Builtin() []domain.QuizTemplate {
	return []domain.QuizTemplate{aprendizagemIACriancas(), transformacaoDigitalNegocios()}
}

func aprendizagemIACriancas() domain.QuizTemplate {
	return domain.QuizTemplate{
		Slug:        "aprendizagem-ia-criancas",
		Title:       "Aprendizagem com IA para Crianças",
		Description: "Descubra como seu filho pode aprender mais rápido e se destacar na escola com a ajuda da inteligência artificial.",
		Steps: []domain.Step{
			{
				ID:       "opening",
				Kind:     domain.StepOpening,
				Title:    "Seu filho pode aprender mais rápido e se destacar na escola! Descubra como em 1 minuto!",
				Subtitle: "Responda algumas perguntas e veja como acelerar o aprendizado do seu filho com uma nova tecnologia!",
			},
			{
				ID:       "age",
				Kind:     domain.StepSingleChoice,
				Category: "demographics",
				Question: "Qual a idade do seu filho?",
				Options:  []string{"6 anos", "7 anos", "8 anos", "9 anos", "10 anos"},
			},
			{
				ID:       "tech",
				Kind:     domain.StepSingleChoice,
				Category: "demographics",
				Question: "Seu filho já usa tecnologia para aprender?",
				Options: []string{
					"Sim, ele adora aprender no celular/tablet",
					"Sim, mas só para tarefas escolares",
					"Não, mas quero que ele use melhor a tecnologia",
					"Não, prefiro métodos tradicionais",
				},
			},
			{
				ID:    "socialProof",
				Kind:  domain.StepInformational,
				Text:  "Mais de 1.000 pais já estão usando essa estratégia para acelerar o aprendizado dos filhos!",
				Image: "URL_IMAGEM_PROVA_SOCIAL",
			},
			{
				ID:       "difficulty",
				Kind:     domain.StepSingleChoice,
				Category: "diagnostic",
				Question: "Seu filho tem dificuldade em aprender novos conteúdos?",
				Options:  []string{"Sim, ele demora para entender", "Às vezes, depende do assunto", "Não, ele aprende rápido"},
			},
			{
				ID:       "distraction",
				Kind:     domain.StepSingleChoice,
				Category: "diagnostic",
				Question: "Ele se distrai com facilidade durante os estudos?",
				Options:  []string{"Sim, qualquer coisa tira a atenção dele", "Às vezes, mas consigo trazer de volta", "Não, ele é bem focado"},
			},
			{
				ID:       "help",
				Kind:     domain.StepSingleChoice,
				Category: "diagnostic",
				Question: "Você sente que poderia ajudar mais no aprendizado dele, mas não sabe como?",
				Options:  []string{"Sim, quero ajudá-lo mais, mas não sei como", "Tento ajudar, mas não tenho tempo", "Não, ele aprende bem sozinho"},
			},
			{
				ID:       "ai",
				Kind:     domain.StepSingleChoice,
				Category: "diagnostic",
				Question: "Você já tentou usar inteligência artificial para ajudar no aprendizado do seu filho?",
				Options:  []string{"Sim, mas não deu certo", "Não, mas quero testar", "Não, acho complicado", "Sim, e funcionou muito bem"},
			},
			{
				ID:       "pain",
				Kind:     domain.StepMultiChoice,
				Category: "painPoints",
				Question: "Quais desses problemas você já percebeu no aprendizado do seu filho? (Escolha até 3)",
				Options: []string{
					"Dificuldade de concentração",
					"Falta de motivação para estudar",
					"Dificuldade para entender textos",
					"Problemas com cálculos matemáticos",
					"Medo de provas e testes",
					"Falta de apoio para aprender em casa",
				},
				MaxSelections: 3,
			},
			{
				ID:       "feeling",
				Kind:     domain.StepSingleChoice,
				Category: "painPoints",
				Question: "Como você se sente ao ver seu filho com dificuldades para aprender?",
				Options: []string{
					"Preocupado(a), porque isso pode afetar o futuro dele",
					"Frustrado(a), porque não sei como ajudar",
					"Normal, acho que faz parte do processo",
				},
			},
			{
				ID:       "desire",
				Kind:     domain.StepSingleChoice,
				Question: "Se pudesse melhorar apenas um aspecto do aprendizado do seu filho, qual seria?",
				Options: []string{
					"Melhorar a concentração",
					"Ajudá-lo a entender conteúdos mais rápido",
					"Tornar o estudo mais divertido",
					"Aumentar a confiança dele nos estudos",
				},
			},
			{
				ID:    "testimonials",
				Kind:  domain.StepInformational,
				Text:  "Veja o que pais que já usaram o método estão dizendo!",
				Image: "URL_IMAGEM_DEPOIMENTOS",
			},
			{
				ID:       "helpPromise",
				Kind:     domain.StepSingleChoice,
				Text:     "A boa notícia é que existe uma forma simples e acessível de transformar o aprendizado do seu filho!",
				Question: "Você gostaria de aprender como usar o ChatGPT para acelerar o aprendizado do seu filho em apenas 14 dias?",
				Options:  []string{"Sim! Quero ajudar meu filho a aprender mais rápido!"},
			},
			{
				ID:       "microCommitment",
				Kind:     domain.StepSingleChoice,
				Question: "Qual o seu nível de motivação para ajudar seu filho a aprender melhor?",
				Options:  []string{"Estou muito motivado(a)!", "Quero testar, mas tenho dúvidas", "Tenho interesse, mas preciso saber mais"},
			},
			{
				ID:   "loading",
				Kind: domain.StepAutoAdvance,
				Text: "Analisando suas respostas... Criando plano personalizado para o aprendizado do seu filho...",
			},
			{
				ID:              "solution",
				Kind:            domain.StepLeadForm,
				Title:           "Parabéns! Seu filho está pronto para aprender mais rápido e se destacar nos estudos!",
				Text:            "Com base nas suas respostas, seu filho pode melhorar a concentração, aprender de forma mais interativa e se destacar na escola usando nosso método com ChatGPT!",
				ComparisonImage: "URL_IMAGEM_COMPARACAO",
				Benefits: []string{
					"Passo a passo para usar o ChatGPT no aprendizado",
					"Exercícios práticos para aplicar com seu filho",
					"Técnicas para manter a atenção e o foco",
				},
				Price: "Oferta especial para quem fez o quiz!",
				CTA:   "Quero transformar o aprendizado do seu filho agora!",
			},
		},
		Testimonials: []domain.Testimonial{
			{
				Text:   "Este método transformou a maneira como meu filho estuda. Ele está muito mais engajado e aprende muito mais rápido!",
				Author: "Maria S., mãe de Pedro (8 anos)",
			},
			{
				Text:   "Minha filha tinha dificuldade com matemática. Com essa abordagem, ela superou seus bloqueios e agora adora resolver problemas!",
				Author: "Carlos M., pai de Ana (9 anos)",
			},
		},
		Order: []string{
			"opening", "age", "tech", "socialProof", "difficulty",
			"distraction", "help", "ai", "pain", "feeling", "desire",
			"testimonials", "helpPromise", "microCommitment", "loading", "solution",
		},
	}
}

func transformacaoDigitalNegocios() domain.QuizTemplate {
	return domain.QuizTemplate{
		Slug:        "transformacao-digital-negocios",
		Title:       "Transformação Digital para Negócios",
		Description: "Descubra como a tecnologia pode transformar seu negócio e aumentar seus resultados.",
		Steps: []domain.Step{
			{
				ID:       "opening",
				Kind:     domain.StepOpening,
				Title:    "Sua empresa está pronta para a transformação digital?",
				Subtitle: "Responda algumas perguntas e descubra como adaptar seu negócio para o mundo digital em menos de 2 minutos!",
			},
			{
				ID:       "business_size",
				Kind:     domain.StepSingleChoice,
				Category: "demographics",
				Question: "Qual o tamanho da sua empresa?",
				Options:  []string{"Autônomo/MEI", "Micro (até 9 funcionários)", "Pequena (10-49 funcionários)", "Média (50-99 funcionários)", "Grande (100+ funcionários)"},
			},
			{
				ID:       "segment",
				Kind:     domain.StepSingleChoice,
				Category: "demographics",
				Question: "Em qual segmento sua empresa atua?",
				Options: []string{
					"Comércio varejista",
					"Prestação de serviços",
					"Indústria/Manufatura",
					"Tecnologia/Software",
					"Educação",
					"Saúde",
					"Outro",
				},
			},
			{
				ID:    "socialProof",
				Kind:  domain.StepInformational,
				Text:  "Mais de 500 empresas já transformaram seu negócio com nossa metodologia!",
				Image: "URL_IMAGEM_PROVA_SOCIAL",
			},
			{
				ID:       "digital_presence",
				Kind:     domain.StepSingleChoice,
				Category: "assessment",
				Question: "Como está a presença digital da sua empresa atualmente?",
				Options:  []string{"Não temos presença online", "Temos apenas redes sociais", "Temos site e redes sociais", "Temos site, redes sociais e vendemos online"},
			},
			{
				ID:       "digital_tools",
				Kind:     domain.StepMultiChoice,
				Category: "assessment",
				Question: "Quais ferramentas digitais você utiliza no dia a dia do negócio? (Selecione todas que se aplicam)",
				Options: []string{
					"CRM ou sistema de gestão de clientes",
					"Software de gestão financeira",
					"Ferramentas de marketing digital",
					"Automação de e-mail marketing",
					"Aplicativos de produtividade (Google Workspace, Microsoft 365)",
					"Sistemas de pagamento digital",
				},
				MaxSelections: 6,
			},
			{
				ID:       "challenges",
				Kind:     domain.StepMultiChoice,
				Category: "painPoints",
				Question: "Quais são os maiores desafios para digitalizar seu negócio? (Selecione até 3)",
				Options: []string{
					"Falta de conhecimento técnico",
					"Custos elevados",
					"Falta de tempo para implementação",
					"Resistência da equipe",
					"Dificuldade em escolher as tecnologias certas",
					"Preocupações com segurança digital",
				},
				MaxSelections: 3,
			},
			{
				ID:       "investment",
				Kind:     domain.StepSingleChoice,
				Category: "assessment",
				Question: "Quanto você investe mensalmente em tecnologia e ferramentas digitais?",
				Options:  []string{"Nada", "Até R$ 500", "Entre R$ 500 e R$ 2.000", "Entre R$ 2.000 e R$ 5.000", "Mais de R$ 5.000"},
			},
			{
				ID:       "goals",
				Kind:     domain.StepSingleChoice,
				Category: "objectives",
				Question: "Qual o principal objetivo com a transformação digital?",
				Options: []string{
					"Aumentar vendas",
					"Reduzir custos operacionais",
					"Melhorar a experiência do cliente",
					"Automatizar processos internos",
					"Expandir para novos mercados",
				},
			},
			{
				ID:    "testimonials",
				Kind:  domain.StepInformational,
				Text:  "Veja como pequenas empresas estão crescendo com a transformação digital",
				Image: "URL_IMAGEM_DEPOIMENTOS",
			},
			{
				ID:       "timeframe",
				Kind:     domain.StepSingleChoice,
				Question: "Em quanto tempo você gostaria de implementar mudanças digitais no seu negócio?",
				Options:  []string{"Imediatamente", "Nos próximos 3 meses", "Nos próximos 6 meses", "No próximo ano"},
			},
			{
				ID:       "commitment",
				Kind:     domain.StepSingleChoice,
				Question: "Qual seu nível de comprometimento com a transformação digital?",
				Options:  []string{"Muito comprometido", "Moderadamente comprometido", "Estou apenas explorando opções"},
			},
			{
				ID:   "loading",
				Kind: domain.StepAutoAdvance,
				Text: "Analisando suas respostas... Criando seu plano de transformação digital personalizado...",
			},
			{
				ID:              "solution",
				Kind:            domain.StepLeadForm,
				Title:           "Seu Plano de Transformação Digital",
				Text:            "Com base nas suas respostas, criamos um plano personalizado para digitalizar seu negócio e aumentar seus resultados!",
				ComparisonImage: "URL_IMAGEM_COMPARACAO",
				Benefits: []string{
					"Diagnóstico completo de maturidade digital",
					"Roteiro personalizado de transformação digital",
					"Seleção das ferramentas ideais para seu negócio",
					"Estratégias de implementação com baixo investimento",
				},
				Price: "Oferta especial para quem completou o diagnóstico!",
				CTA:   "Quero transformar meu negócio agora!",
			},
		},
		Order: []string{
			"opening", "business_size", "segment", "socialProof", "digital_presence",
			"digital_tools", "challenges", "investment", "goals", "testimonials",
			"timeframe", "commitment", "loading", "solution",
		},
		Testimonials: []domain.Testimonial{
			{
				Text:   "Aumentamos nossas vendas em 70% após implementar as estratégias digitais recomendadas!",
				Author: "João Silva, Loja de Calçados",
			},
			{
				Text:   "Conseguimos reduzir custos e aumentar a produtividade com as ferramentas certas para nosso negócio.",
				Author: "Luciana Mendes, Consultório Odontológico",
			},
		},
	}
}
