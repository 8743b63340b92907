package service

import (
	"fmt"
	"strings"
)

// buildInterviewPrompt arma el prompt de generación de preguntas.
// Las preguntas las lee un asistente de voz: sin "/" ni "*".
func buildInterviewPrompt(in GenerateInterviewInput) string {
	var sb strings.Builder
	sb.WriteString("Prepare questions for a job interview.\n")
	sb.WriteString(fmt.Sprintf("The job role is %s.\n", in.Role))
	sb.WriteString(fmt.Sprintf("The job experience level is %s.\n", in.Level))
	sb.WriteString(fmt.Sprintf("The tech stack used in the job is: %s.\n", in.Techstack))
	sb.WriteString(fmt.Sprintf("The focus between behavioural and technical questions should lean towards: %s.\n", in.Type))
	sb.WriteString(fmt.Sprintf("The amount of questions required is: %s.\n", in.Amount))
	sb.WriteString("Please return only the questions, without any additional text.\n")
	sb.WriteString("The questions are going to be read by a voice assistant so do not use \"/\" or \"*\" or any other special characters which might break the voice assistant.\n")
	sb.WriteString("Return the questions formatted like this:\n")
	sb.WriteString(`["Question 1", "Question 2", "Question 3"]`)
	return sb.String()
}
