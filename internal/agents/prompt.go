package agents

import (
	"context"
	"fmt"

	"fincoach/internal/llm"
)

// handler turns a payload into a prompt; the model's answer is stored
// under resultKey.
type handler struct {
	resultKey string
	prompt    func(data map[string]any) string
}

// promptAgent answers every task type with a single free-form completion.
type promptAgent struct {
	id           string
	name         string
	typ          Type
	capabilities []string
	fallback     string
	handlers     map[string]handler
	llm          llm.Completer
}

func (a *promptAgent) ID() string             { return a.id }
func (a *promptAgent) Name() string           { return a.name }
func (a *promptAgent) Type() Type             { return a.typ }
func (a *promptAgent) Capabilities() []string { return append([]string(nil), a.capabilities...) }

// Process runs the handler for req.TaskType, or the agent's general handler
// when the type is unknown.
func (a *promptAgent) Process(ctx context.Context, req Request) Result {
	taskType := req.TaskType
	h, ok := a.handlers[taskType]
	if !ok {
		taskType = a.fallback
		h = a.handlers[a.fallback]
	}
	text, err := ask(ctx, a.llm, genericSystem, h.prompt(req.Data))
	if err != nil {
		return failure(a, taskType, fmt.Errorf("error getting AI response: %w", err))
	}
	r := envelope(a, taskType, true)
	r[h.resultKey] = text
	return r
}

func NewResearchAgent(c llm.Completer) Agent {
	return &promptAgent{
		id:   "research_agent",
		name: "Research Assistant",
		typ:  Research,
		capabilities: []string{
			"web_research",
			"data_analysis",
			"market_research",
			"competitive_analysis",
			"trend_analysis",
			"report_generation",
			"fact_checking",
		},
		fallback: "general_research",
		llm:      c,
		handlers: map[string]handler{
			"market_research": {"research", func(d map[string]any) string {
				return fmt.Sprintf(`Conduct comprehensive market research on: %s

Focus Areas: %s

Provide:
1. Market size and growth potential
2. Key players and competitors
3. Market trends and opportunities
4. Challenges and risks
5. Recommendations`, field(d, "topic", ""), field(d, "focus_areas", ""))
			}},
			"competitive_analysis": {"competitive_analysis", func(d map[string]any) string {
				return fmt.Sprintf(`Analyze competitive landscape for:

Industry: %s
Competitors: %s

Provide:
1. Competitive positioning
2. Strengths and weaknesses analysis
3. Market share analysis
4. Strategic recommendations`, field(d, "industry", ""), field(d, "competitors", ""))
			}},
			"trend_analysis": {"trend_analysis", func(d map[string]any) string {
				return fmt.Sprintf(`Analyze trends in %s for %s period:

Provide:
1. Current trends
2. Emerging patterns
3. Future predictions
4. Impact assessment
5. Opportunities and threats`, field(d, "domain", ""), field(d, "time_period", "current"))
			}},
			"general_research": {"research", func(d map[string]any) string {
				return fmt.Sprintf(`Research the following topic: %s

Depth level: %s

Provide comprehensive information including:
1. Key facts and figures
2. Historical context
3. Current status
4. Future outlook
5. Sources and references`, field(d, "query", ""), field(d, "depth", "comprehensive"))
			}},
		},
	}
}

func NewProductivityAgent(c llm.Completer) Agent {
	return &promptAgent{
		id:   "productivity_agent",
		name: "Productivity Coach",
		typ:  Productivity,
		capabilities: []string{
			"task_prioritization",
			"time_management",
			"workflow_optimization",
			"habit_tracking",
			"goal_setting",
			"schedule_optimization",
			"productivity_analysis",
		},
		fallback: "general_productivity",
		llm:      c,
		handlers: map[string]handler{
			"task_prioritization": {"prioritization", func(d map[string]any) string {
				return fmt.Sprintf(`Prioritize these tasks based on %s:

Tasks: %s

Provide:
1. Prioritized task list
2. Rationale for prioritization
3. Recommended order of execution
4. Time estimates`, field(d, "criteria", "urgency, importance, effort"), field(d, "tasks", ""))
			}},
			"schedule_optimization": {"optimized_schedule", func(d map[string]any) string {
				return fmt.Sprintf(`Optimize this schedule:

Current Schedule: %s
Constraints: %s
Goals: %s

Provide:
1. Optimized schedule
2. Time blocking recommendations
3. Break suggestions
4. Productivity improvements`, field(d, "schedule", "{}"), field(d, "constraints", "{}"), field(d, "goals", ""))
			}},
			"workflow_analysis": {"workflow_analysis", func(d map[string]any) string {
				return fmt.Sprintf(`Analyze and improve this workflow:

Current Workflow: %s
Pain Points: %s

Provide:
1. Workflow analysis
2. Bottleneck identification
3. Improvement recommendations
4. Automation opportunities`, field(d, "workflow", "{}"), field(d, "pain_points", ""))
			}},
			"general_productivity": {"productivity_advice", func(d map[string]any) string {
				return fmt.Sprintf(`Provide productivity advice for:

Context: %s
Challenges: %s

Provide:
1. Specific strategies
2. Tool recommendations
3. Habit formation tips
4. Motivation techniques`, field(d, "context", ""), field(d, "challenges", ""))
			}},
		},
	}
}

func NewLearningAgent(c llm.Completer) Agent {
	return &promptAgent{
		id:   "learning_agent",
		name: "Learning Coach",
		typ:  Learning,
		capabilities: []string{
			"skill_assessment",
			"learning_path_creation",
			"resource_recommendation",
			"progress_tracking",
			"knowledge_testing",
			"study_planning",
			"career_guidance",
		},
		fallback: "general_learning",
		llm:      c,
		handlers: map[string]handler{
			"skill_assessment": {"skill_assessment", func(d map[string]any) string {
				return fmt.Sprintf(`Assess skills and identify gaps:

Current Skills: %s
Target Skills: %s
Career Goals: %s

Provide:
1. Skill gap analysis
2. Proficiency assessment
3. Priority areas for development
4. Skill acquisition timeline`, field(d, "current_skills", ""), field(d, "target_skills", ""), field(d, "career_goals", ""))
			}},
			"learning_path": {"learning_path", func(d map[string]any) string {
				return fmt.Sprintf(`Create a learning path for %s:

Current Level: %s
Target Level: %s
Time Available: %s

Provide:
1. Step-by-step learning roadmap
2. Milestone definitions
3. Time estimates for each stage
4. Progress tracking methods`, field(d, "subject", ""), field(d, "current_level", "beginner"),
					field(d, "target_level", "intermediate"), field(d, "time_available", "2_hours_per_week"))
			}},
			"resource_recommendation": {"resource_recommendations", func(d map[string]any) string {
				return fmt.Sprintf(`Recommend learning resources for %s:

Learning Style: %s
Budget: %s

Provide:
1. Best courses and tutorials
2. Books and documentation
3. Practice projects
4. Community resources
5. Tools and software`, field(d, "topic", ""), field(d, "learning_style", "visual"), field(d, "budget", "free"))
			}},
			"general_learning": {"learning_advice", func(d map[string]any) string {
				return fmt.Sprintf(`Provide learning advice for:

Context: %s
Challenges: %s

Provide:
1. Learning strategies
2. Memory techniques
3. Study habits
4. Motivation tips
5. Overcoming plateaus`, field(d, "context", ""), field(d, "challenges", ""))
			}},
		},
	}
}
