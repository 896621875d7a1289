package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"strings"
	"time"

	. "github.com/hongclass/speakgrinder/types"
)

const defaultAIBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// AIClient wraps the Gemini REST API. With no key configured every
// method degrades to a deterministic placeholder result so the rest of
// the system stays usable in demos and tests.
type AIClient struct {
	Key     string
	Model   string
	BaseURL string
	Client  *http.Client
}

func NewAIClient(key, model string) *AIClient {
	return &AIClient{
		Key:     key,
		Model:   model,
		BaseURL: defaultAIBaseURL,
		Client:  &http.Client{Timeout: 5 * time.Minute},
	}
}

// TranscribeSample transcribes a teacher's sample video.
func (ai *AIClient) TranscribeSample(media *MediaFile) (string, error) {
	if ai.Key == "" {
		return fmt.Sprintf("Xin chào mọi người. Đây là một bản ghi mẫu được tạo vì thiếu khóa API. "+
			"Không thể xử lý nội dung thực tế của video %q của bạn. "+
			"Một câu trả lời mẫu sẽ rõ ràng, súc tích và sử dụng từ vựng phù hợp.", media.Name), nil
	}

	prompt := "Bạn là một dịch vụ chuyển lời nói thành văn bản. " +
		"Phiên âm chính xác âm thanh từ tệp video được cung cấp. " +
		"Chỉ xuất ra văn bản phiên âm thuần túy."
	text, err := ai.generate([]aiPart{mediaPart(media), textPart(prompt)}, false)
	if err != nil {
		return "", loggedErrorf("transcribing sample video %s: %v", media.Name, err)
	}
	return strings.TrimSpace(text), nil
}

// TranscribeSubmission transcribes a student's recording. The prompt
// warns the model to expect learner English.
func (ai *AIClient) TranscribeSubmission(media *MediaFile) (string, error) {
	if ai.Key == "" {
		return fmt.Sprintf("Đây là một bản ghi mẫu cho tệp: %q. "+
			"Dường như khóa API Gemini chưa được cấu hình. "+
			"Một học sinh trình độ B1 có thể nói điều gì đó như: "+
			`"Hello, my topic is... uh... my last vacation. I go to the beach. It was very fun."`, media.Name), nil
	}

	prompt := "Bạn là một dịch vụ chuyển lời nói thành văn bản. " +
		"Phiên âm chính xác âm thanh từ tệp được cung cấp. " +
		"Người nói có khả năng là người học tiếng Anh trình độ B1, " +
		"vì vậy hãy chuẩn bị cho một số phát âm hoặc ngữ pháp không chuẩn. " +
		"Chỉ xuất ra văn bản phiên âm thuần túy."
	text, err := ai.generate([]aiPart{mediaPart(media), textPart(prompt)}, false)
	if err != nil {
		return "", loggedErrorf("transcribing submission %s: %v", media.Name, err)
	}
	return strings.TrimSpace(text), nil
}

// CheckSimilarity asks whether the student spoke about the same core
// topic as the sample. It fails open: with no key, no sample
// transcript, or any API error the verdict is a match, so the check can
// only ever flag a submission, never block one on infrastructure
// trouble.
func (ai *AIClient) CheckSimilarity(studentTranscript, sampleTranscript string) bool {
	if ai.Key == "" || sampleTranscript == "" {
		return true
	}

	prompt := fmt.Sprintf(`You are an AI assistant. Compare the student's transcript with the teacher's model transcript for a speaking assignment.
Teacher's Model Transcript: %q
Student's Transcript: %q

Determine if the student is talking about the same core topic as the model. The student doesn't need to use the exact same words, but the subject must be the same (e.g., both are about hobbies, both are about a vacation).
Respond ONLY with a JSON object with a single key "isMatch" which is a boolean.`,
		sampleTranscript, studentTranscript)

	text, err := ai.generate([]aiPart{textPart(prompt)}, true)
	if err != nil {
		log.Printf("similarity check failed, assuming a match: %v", err)
		return true
	}
	var verdict struct {
		IsMatch bool `json:"isMatch"`
	}
	if err := json.Unmarshal([]byte(extractJSON(text)), &verdict); err != nil {
		log.Printf("similarity verdict was not JSON, assuming a match: %v", err)
		return true
	}
	return verdict.IsMatch
}

// GradeAndFeedback produces a pronunciation-focused score and written
// feedback in the voice of a warm Vietnamese English teacher. The score
// is clamped to [0,10] whatever the model returns.
func (ai *AIClient) GradeAndFeedback(studentName, assignmentTitle, transcript, sampleTranscript string) (float64, string, error) {
	if ai.Key == "" {
		feedback := fmt.Sprintf("Chào %s thân mến, đây là nhận xét mẫu vì API key chưa được cấu hình.\n"+
			"Con đã diễn đạt ý chính khá tốt, nhưng cần chú ý hơn đến việc phát âm các âm cuối.\n"+
			"Hãy tiếp tục luyện tập nhé! Cô tin con sẽ tiến bộ rất nhanh!", studentName)
		return 7.5, feedback, nil
	}

	topicNote := fmt.Sprintf("Teacher's Model Transcript (For context on what was expected): %q", sampleTranscript)
	if sampleTranscript == "" {
		topicNote = "This is a freestyle (open topic) assignment, so there is no model transcript for comparison. " +
			"Evaluate the student based on general speaking skills shown in their transcript " +
			"(pronunciation, grammar, vocabulary usage, and fluency). Do not penalize them for the topic choice."
	}

	prompt := fmt.Sprintf(`You are a friendly and encouraging female English teacher from Vietnam. Your name is 'cô'. You are grading a speaking assignment for your student.

Student's Name: %q
Assignment Title: %q
%s
Student's Transcript to evaluate: %q

Your task:
1. Adopt the persona of a kind Vietnamese female teacher ("cô").
2. Address the student directly and warmly by their name.
3. The main grading focus is pronunciation. Analyze the transcript for likely pronunciation mistakes, considering common errors for Vietnamese learners (e.g., missing ending sounds like /s/, /t/, /k/, incorrect vowel sounds).
4. Provide a score out of 10, primarily based on pronunciation clarity and accuracy.
5. Write detailed, constructive feedback in Vietnamese, with newline characters separating the introduction, each point of feedback, and the conclusion.
6. For each pronunciation issue, explain the error simply and give clear, actionable advice on correcting it.
7. Keep a warm, supportive tone: use "cô" for yourself and "con" for the student, and end with an encouraging sentence.

Output your response as a JSON object with two keys: "score" (a number from 0 to 10) and "feedback" (a string in Vietnamese).`,
		studentName, assignmentTitle, topicNote, transcript)

	text, err := ai.generate([]aiPart{textPart(prompt)}, true)
	if err != nil {
		return 0, "", loggedErrorf("grading submission by %s: %v", studentName, err)
	}
	var result struct {
		Score    float64 `json:"score"`
		Feedback string  `json:"feedback"`
	}
	if err := json.Unmarshal([]byte(extractJSON(text)), &result); err != nil {
		return 0, "", loggedErrorf("grade result was not JSON: %v", err)
	}
	return ClampScore(result.Score), result.Feedback, nil
}

type aiPart map[string]interface{}

func textPart(text string) aiPart {
	return aiPart{"text": text}
}

func mediaPart(media *MediaFile) aiPart {
	return aiPart{
		"inline_data": map[string]string{
			"mime_type": media.MimeType,
			"data":      media.Data,
		},
	}
}

// generate performs one generateContent call and returns the text of
// the first candidate.
func (ai *AIClient) generate(parts []aiPart, wantJSON bool) (string, error) {
	request := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": parts},
		},
	}
	if wantJSON {
		request["generationConfig"] = map[string]interface{}{
			"responseMimeType": "application/json",
		}
	}
	payload, err := json.Marshal(request)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", ai.BaseURL, ai.Model, ai.Key)
	resp, err := ai.Client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("AI API status %d: %.200s", resp.StatusCode, string(body))
	}

	var reply struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return "", fmt.Errorf("malformed AI reply: %v", err)
	}
	if len(reply.Candidates) == 0 || len(reply.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty AI reply")
	}
	return reply.Candidates[0].Content.Parts[0].Text, nil
}

// extractJSON pulls the JSON object out of a model reply that may be
// wrapped in markdown fences or prose.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}
